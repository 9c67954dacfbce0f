package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jason-s-yu/forca/internal/models"
	"github.com/sirupsen/logrus"
)

// Phase is the position of a room in its round. It only moves forward.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhasePreparing
	PhaseActive
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "WAITING"
	case PhasePreparing:
		return "PREPARING"
	case PhaseActive:
		return "ACTIVE"
	case PhaseFinished:
		return "FINISHED"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Slot is a seated player. ConnID is the player's connection in the Broadcaster;
// it is cleared when the connection goes away.
type Slot struct {
	PlayerID   string
	Name       string
	ConnID     string
	Ready      bool
	Lives      int
	PowersUsed map[PowerKind]bool
}

// Turn is the current turn owner (slot index) and the 1-based turn counter.
type Turn struct {
	Index  int `json:"index"`
	Number int `json:"number"`
}

// Settings are the per-room gameplay knobs.
type Settings struct {
	TurnDuration  time.Duration
	StartingLives int
	WordTimeout   time.Duration
}

// DefaultSettings are used for any zero field of Options.Settings.
var DefaultSettings = Settings{
	TurnDuration:  30 * time.Second,
	StartingLives: 6,
	WordTimeout:   5 * time.Second,
}

// JoinRequest is a joinRoom message resolved to a connection.
type JoinRequest struct {
	PlayerID   string
	PlayerName string
	CategoryID int64
	ConnID     string
}

// Room is one two-player session. Every exported method takes the room lock for its
// whole duration, including the word lookup when a round starts.
type Room struct {
	ID         string
	CategoryID int64

	mu      sync.Mutex
	phase   Phase
	slots   [2]*Slot
	secret  models.Word
	guessed map[rune]bool
	tried   []string
	turn    Turn
	timer   *TurnTimer
	seq     int
	winner  string
	reason  string
	closed  bool

	settings Settings
	words    WordProvider
	powers   *PowerEngine
	out      Broadcaster
	journal  *journalQueue
	results  ResultRecorder
	log      logrus.FieldLogger

	// onEmpty is called with the lock held once no connection is attached.
	onEmpty func(*Room)
}

func newRoom(id string, categoryID int64, opts Options) *Room {
	r := &Room{
		ID:         id,
		CategoryID: categoryID,
		phase:      PhaseWaiting,
		guessed:    make(map[rune]bool),
		settings:   opts.Settings,
		words:      opts.Words,
		powers:     opts.Powers,
		out:        opts.Broadcaster,
		results:    opts.Results,
		log:        opts.Logger.WithField("room", id),
	}
	if opts.Journal != nil {
		r.journal = newJournalQueue(opts.Journal, r.log)
	}
	r.timer = NewTurnTimer(r.settings.TurnDuration, r.timeExpired)
	return r
}

// Phase returns the current phase.
func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Join seats a player and announces the membership to the room.
func (r *Room) Join(ctx context.Context, req JoinRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	if r.slotIndex(req.PlayerID) >= 0 {
		return ErrAlreadyJoined
	}
	free := -1
	for i, s := range r.slots {
		if s == nil {
			free = i
			break
		}
	}
	if free < 0 {
		return ErrRoomFull
	}
	if r.phase != PhaseWaiting {
		return ErrInvalidPhase
	}
	if req.CategoryID != r.CategoryID {
		return fmt.Errorf("%w: room %s plays category %d", ErrCategoryMismatch, r.ID, r.CategoryID)
	}

	name := strings.TrimSpace(req.PlayerName)
	if name == "" {
		name = req.PlayerID
	}
	r.slots[free] = &Slot{
		PlayerID:   req.PlayerID,
		Name:       name,
		ConnID:     req.ConnID,
		Lives:      r.settings.StartingLives,
		PowersUsed: make(map[PowerKind]bool),
	}
	if r.seated() == 2 {
		r.phase = PhasePreparing
	}
	r.log.Infof("player %s joined slot %d (%s)", req.PlayerID, free, r.phase)
	r.broadcast(req.PlayerID, r.preparacaoEvent())
	return nil
}

// Ready marks the player ready. Once both seated players are ready the secret word
// is fetched and the round starts.
func (r *Room) Ready(ctx context.Context, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.slotIndex(playerID)
	if idx < 0 {
		return ErrNotInRoom
	}
	slot := r.slots[idx]
	if slot.Ready {
		return nil
	}
	if r.phase != PhaseWaiting && r.phase != PhasePreparing {
		return ErrInvalidPhase
	}
	slot.Ready = true
	r.broadcast(playerID, r.preparacaoEvent())

	if r.phase == PhasePreparing && r.slots[0].Ready && r.slots[1].Ready {
		return r.start(ctx)
	}
	return nil
}

// start moves PREPARING to ACTIVE, or to FINISHED when no word can be had.
// Assumes lock is held.
func (r *Room) start(ctx context.Context) error {
	wctx, cancel := context.WithTimeout(ctx, r.settings.WordTimeout)
	word, err := r.words.RandomWord(wctx, r.CategoryID)
	cancel()
	if err == nil && strings.TrimSpace(word.Palavra) == "" {
		err = fmt.Errorf("empty word %d", word.ID)
	}
	if err != nil {
		r.log.Warnf("word provider failed for category %d: %v", r.CategoryID, err)
		r.finish("", ReasonNoWord)
		return fmt.Errorf("%w: %v", ErrWordProvider, err)
	}

	r.secret = word
	r.turn = Turn{Index: 0, Number: 1}
	r.phase = PhaseActive
	r.timer.Start()
	r.log.Infof("round started with word %d, %s opens", word.ID, r.slots[0].PlayerID)

	r.broadcast("", NewEvent(EventInicio, map[string]interface{}{
		"turno":          r.owner(),
		"numeroTurno":    r.turn.Number,
		"palavraSecreta": maskWord(word.Palavra, r.guessed),
		"tamanho":        letterCount(word.Palavra),
		"dica":           word.Dica,
		"vidas":          r.lives(),
		"poderes":        Powers(),
		"duracaoTurno":   int(r.settings.TurnDuration.Seconds()),
	}))
	return nil
}

// Guess plays a letter for the turn owner. A hit keeps the turn; a miss costs a life
// and passes it.
func (r *Room) Guess(ctx context.Context, playerID, letter string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.ownerCheck(playerID)
	if err != nil {
		return err
	}
	l, err := normalizeLetter(letter)
	if err != nil {
		return err
	}
	if r.guessed[l] {
		return fmt.Errorf("%w: %c", ErrLetterAlreadyGuessed, l)
	}

	r.guessed[l] = true
	r.tried = append(r.tried, string(l))
	slot := r.slots[idx]
	hit := containsLetter(r.secret.Palavra, l)
	if !hit {
		slot.Lives--
	}

	solved := hit && len(hiddenLetters(r.secret.Palavra, r.guessed)) == 0
	switch {
	case solved:
	case !hit && slot.Lives <= 0:
	case !hit:
		r.passTurn()
	default:
		r.timer.Start()
	}

	r.broadcast(playerID, NewEvent(EventJogada, map[string]interface{}{
		"jogador":        playerID,
		"letra":          string(l),
		"acertou":        hit,
		"palavra":        maskWord(r.secret.Palavra, r.guessed),
		"letrasTentadas": append([]string(nil), r.tried...),
		"vidas":          r.lives(),
		"turno":          r.owner(),
		"numeroTurno":    r.turn.Number,
	}))

	switch {
	case solved:
		r.finish(playerID, ReasonSolved)
	case !hit && slot.Lives <= 0:
		r.finish(r.slots[1-idx].PlayerID, ReasonNoLives)
	}
	return nil
}

// UsePower spends the player's single use of kind. Turn ownership is unchanged.
func (r *Room) UsePower(ctx context.Context, playerID, kind string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.ownerCheck(playerID)
	if err != nil {
		return err
	}
	slot := r.slots[idx]
	pk := PowerKind(strings.TrimSpace(kind))
	if slot.PowersUsed[pk] {
		return fmt.Errorf("%w: %s already used", ErrUnknownPower, pk)
	}
	eff, err := r.powers.Resolve(pk, PowerView{
		Lives:  slot.Lives,
		Hidden: hiddenLetters(r.secret.Palavra, r.guessed),
	})
	if err != nil {
		return err
	}

	slot.PowersUsed[pk] = true
	slot.Lives += eff.ExtraLives
	data := map[string]interface{}{
		"jogador": playerID,
		"poder":   string(eff.Kind),
		"efeito":  eff.Name,
		"vidas":   r.lives(),
	}
	if eff.Reveal != 0 {
		r.guessed[eff.Reveal] = true
		r.tried = append(r.tried, string(eff.Reveal))
		data["letra"] = string(eff.Reveal)
		data["palavra"] = maskWord(r.secret.Palavra, r.guessed)
	}
	r.log.Infof("player %s used %s", playerID, pk)
	r.broadcast(playerID, NewEvent(EventPoderUsado, data))
	return nil
}

// ForfeitTurn hands the turn over on the owner's own request, exactly as if the turn
// timer had run out.
func (r *Room) ForfeitTurn(ctx context.Context, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.ownerCheck(playerID); err != nil {
		return err
	}
	r.expireTurn()
	return nil
}

// timeExpired is the TurnTimer callback. Countdowns that are no longer current are ignored.
func (r *Room) timeExpired(h TimerHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseActive || !r.timer.Matches(h) {
		r.log.Debugf("stale turn timer %d ignored (current %d, %s)", h, r.timer.Current(), r.phase)
		return
	}
	r.log.Infof("turn %d timed out for %s", r.turn.Number, r.owner())
	r.expireTurn()
}

// expireTurn passes the turn and announces it. Assumes lock is held.
func (r *Room) expireTurn() {
	prev := r.owner()
	r.passTurn()
	r.broadcast(prev, NewEvent(EventTurnoTrocado, map[string]interface{}{
		"turno":       r.owner(),
		"anterior":    prev,
		"numeroTurno": r.turn.Number,
		"motivo":      reasonTimeout,
	}))
}

// passTurn flips the owner, bumps the counter and restarts the countdown.
// Assumes lock is held.
func (r *Room) passTurn() {
	r.turn.Index = 1 - r.turn.Index
	r.turn.Number++
	r.timer.Start()
}

// Detach removes the connection from the room. Before the round ends this costs the
// leaver the round; the room is released once no connection remains.
func (r *Room) Detach(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.slots {
		if s != nil && s.ConnID == connID {
			r.leave(i)
			return
		}
	}
}

// Leave is Detach by player id.
func (r *Room) Leave(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.slotIndex(playerID); i >= 0 {
		r.leave(i)
	}
}

// Assumes lock is held.
func (r *Room) leave(idx int) {
	slot := r.slots[idx]
	r.log.Infof("player %s left during %s", slot.PlayerID, r.phase)

	switch r.phase {
	case PhaseWaiting:
		r.slots[idx] = nil
		if r.seated() > 0 {
			r.broadcast(slot.PlayerID, r.preparacaoEvent())
		}
	case PhasePreparing, PhaseActive:
		slot.ConnID = ""
		other := r.slots[1-idx]
		r.broadcast(slot.PlayerID, NewEvent(EventJogadorSaiu, map[string]interface{}{
			"jogador": slot.PlayerID,
			"nome":    slot.Name,
		}))
		r.finish(other.PlayerID, ReasonAbandon)
	case PhaseFinished:
		slot.ConnID = ""
	}

	if len(r.connIDs()) == 0 {
		r.release()
	}
}

// finish ends the round. winner may be empty. Assumes lock is held.
func (r *Room) finish(winner, reason string) {
	r.timer.Stop()
	r.phase = PhaseFinished
	r.winner = winner
	r.reason = reason

	r.broadcast(winner, NewEvent(EventFimDeJogo, map[string]interface{}{
		"vencedor": winner,
		"motivo":   reason,
		"palavra":  r.secret.Palavra,
		"dica":     r.secret.Dica,
		"vidas":    r.lives(),
	}))
	r.log.Infof("round finished: winner=%q reason=%s", winner, reason)

	if r.results == nil || winner == "" {
		return
	}
	res := models.RoundResult{
		RoomID:     r.ID,
		WordID:     r.secret.ID,
		WinnerID:   winner,
		Reason:     reason,
		Turns:      r.turn.Number,
		FinishedAt: time.Now(),
	}
	for _, s := range r.slots {
		if s != nil && s.PlayerID != winner {
			res.LoserID = s.PlayerID
		}
	}
	go func(rec ResultRecorder, res models.RoundResult) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rec.RecordRound(ctx, res); err != nil {
			r.log.Warnf("recording round result: %v", err)
		}
	}(r.results, res)
}

// release drops the room from its registry. Assumes lock is held.
func (r *Room) release() {
	if r.closed {
		return
	}
	r.closed = true
	r.timer.Stop()
	if r.onEmpty != nil {
		r.onEmpty(r)
	}
}

// releaseIfEmpty drops the room from its registry when nobody is seated.
func (r *Room) releaseIfEmpty() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seated() == 0 {
		r.release()
	}
}

func (r *Room) markClosed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.timer.Stop()
}

// broadcast sends ev to every attached connection and journals it.
// Assumes lock is held, which keeps a room's events in transition order.
func (r *Room) broadcast(actorID string, ev Event) {
	if conns := r.connIDs(); len(conns) > 0 && r.out != nil {
		r.out.Broadcast(conns, ev)
	}
	r.record(actorID, ev)
}

// record queues ev for the journal without waiting for it. Assumes lock is held, so
// queue order is seq order.
func (r *Room) record(actorID string, ev Event) {
	r.seq++
	if r.journal == nil {
		return
	}
	r.journal.push(models.RoomEvent{
		RoomID:    r.ID,
		Seq:       r.seq,
		ActorID:   actorID,
		Event:     string(ev.Name),
		Payload:   ev.Data,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (r *Room) preparacaoEvent() Event {
	players := make([]map[string]interface{}, 0, 2)
	for _, s := range r.slots {
		if s == nil {
			continue
		}
		players = append(players, map[string]interface{}{
			"id":     s.PlayerID,
			"nome":   s.Name,
			"pronto": s.Ready,
		})
	}
	return NewEvent(EventPreparacao, map[string]interface{}{
		"sala":      r.ID,
		"categoria": r.CategoryID,
		"fase":      r.phase.String(),
		"jogadores": players,
	})
}

// ownerCheck returns the slot of playerID if it may act now. Assumes lock is held.
func (r *Room) ownerCheck(playerID string) (int, error) {
	if r.phase != PhaseActive {
		return -1, ErrInvalidPhase
	}
	idx := r.slotIndex(playerID)
	if idx < 0 {
		return -1, ErrNotInRoom
	}
	if idx != r.turn.Index {
		return -1, ErrNotYourTurn
	}
	return idx, nil
}

func (r *Room) slotIndex(playerID string) int {
	for i, s := range r.slots {
		if s != nil && s.PlayerID == playerID {
			return i
		}
	}
	return -1
}

func (r *Room) seated() int {
	n := 0
	for _, s := range r.slots {
		if s != nil {
			n++
		}
	}
	return n
}

func (r *Room) connIDs() []string {
	ids := make([]string, 0, 2)
	for _, s := range r.slots {
		if s != nil && s.ConnID != "" {
			ids = append(ids, s.ConnID)
		}
	}
	return ids
}

func (r *Room) owner() string {
	if s := r.slots[r.turn.Index]; s != nil {
		return s.PlayerID
	}
	return ""
}

func (r *Room) lives() map[string]int {
	out := make(map[string]int, 2)
	for _, s := range r.slots {
		if s != nil {
			out[s.PlayerID] = s.Lives
		}
	}
	return out
}

// PlayerView is the public state of a seat.
type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"nome"`
	Ready     bool   `json:"pronto"`
	Lives     int    `json:"vidas"`
	Connected bool   `json:"conectado"`
}

// Snapshot is a copy of a room's public state.
type Snapshot struct {
	ID         string       `json:"id"`
	CategoryID int64        `json:"categoria"`
	Phase      Phase        `json:"fase"`
	Players    []PlayerView `json:"jogadores"`
	Turn       Turn         `json:"turno"`
	TurnOwner  string       `json:"dono,omitempty"`
	Masked     string       `json:"palavra,omitempty"`
	Guessed    []string     `json:"letrasTentadas,omitempty"`
	Winner     string       `json:"vencedor,omitempty"`
	Reason     string       `json:"motivo,omitempty"`
	TimerLive  bool         `json:"-"`
	Timer      TimerHandle  `json:"-"`
}

// Snapshot returns the room's public state.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		ID:         r.ID,
		CategoryID: r.CategoryID,
		Phase:      r.phase,
		Turn:       r.turn,
		Guessed:    append([]string(nil), r.tried...),
		Winner:     r.winner,
		Reason:     r.reason,
		TimerLive:  r.timer.Live(),
		Timer:      r.timer.Current(),
	}
	for _, s := range r.slots {
		if s == nil {
			continue
		}
		snap.Players = append(snap.Players, PlayerView{
			ID:        s.PlayerID,
			Name:      s.Name,
			Ready:     s.Ready,
			Lives:     s.Lives,
			Connected: s.ConnID != "",
		})
	}
	if r.phase >= PhaseActive && r.secret.Palavra != "" {
		snap.Masked = maskWord(r.secret.Palavra, r.guessed)
		snap.TurnOwner = r.owner()
	}
	return snap
}
