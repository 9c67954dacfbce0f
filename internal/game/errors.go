package game

import "errors"

// Rejections returned by room operations. A rejected operation leaves the room untouched.
var (
	ErrRoomFull             = errors.New("room already has two players")
	ErrNotYourTurn          = errors.New("not your turn")
	ErrInvalidPhase         = errors.New("action not allowed in the current phase")
	ErrUnknownPower         = errors.New("unknown or exhausted power")
	ErrWordProvider         = errors.New("no word available for category")
	ErrCategoryMismatch     = errors.New("room is bound to another category")
	ErrAlreadyJoined        = errors.New("player already joined")
	ErrNotInRoom            = errors.New("player is not in this room")
	ErrInvalidLetter        = errors.New("guess must be a single letter")
	ErrLetterAlreadyGuessed = errors.New("letter already guessed")
	ErrPowerNotApplicable   = errors.New("power cannot be applied now")
	ErrInvalidMessage       = errors.New("invalid message")

	// ErrRoomClosed is returned by a room that has been released from its registry.
	// Registry.Join retries against a fresh session when it sees it.
	ErrRoomClosed = errors.New("room closed")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrRoomFull, "salaCheia"},
	{ErrNotYourTurn, "naoESuaVez"},
	{ErrInvalidPhase, "faseInvalida"},
	{ErrUnknownPower, "poderDesconhecido"},
	{ErrWordProvider, "palavraIndisponivel"},
	{ErrCategoryMismatch, "categoriaDiferente"},
	{ErrAlreadyJoined, "jaEstaNaSala"},
	{ErrNotInRoom, "foraDaSala"},
	{ErrInvalidLetter, "letraInvalida"},
	{ErrLetterAlreadyGuessed, "letraRepetida"},
	{ErrPowerNotApplicable, "poderNaoAplicavel"},
	{ErrInvalidMessage, "mensagemInvalida"},
	{ErrRoomClosed, "salaEncerrada"},
}

// ErrorCode returns the wire code for err, or "erroInterno" if it is not a room error.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "erroInterno"
}
