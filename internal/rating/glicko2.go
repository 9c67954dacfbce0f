// internal/rating/glicko2.go
package rating

import "math"

const (
	// GlickoScale converts between the rating scale and Glicko-2's internal mu/phi.
	GlickoScale = 173.7178
	// DefaultValue is the rating of a new player.
	DefaultValue = 1500.0
	// DefaultDeviation is the rating deviation of a new player.
	DefaultDeviation = 350.0
	// DefaultVolatility is the volatility of a new player.
	DefaultVolatility = 0.06
	// Tau constrains how fast volatility may change.
	Tau = 0.5
	// Epsilon is the convergence tolerance of the volatility iteration.
	Epsilon = 0.000001
)

// glicko is a rating in Glicko-2 space.
type glicko struct {
	mu    float64
	phi   float64
	sigma float64
}

func toGlicko(r Rating) glicko {
	return glicko{
		mu:    (r.Value - DefaultValue) / GlickoScale,
		phi:   r.Deviation / GlickoScale,
		sigma: r.Volatility,
	}
}

func (g glicko) rating() Rating {
	return Rating{
		Value:      g.mu*GlickoScale + DefaultValue,
		Deviation:  g.phi * GlickoScale,
		Volatility: g.sigma,
	}
}

// update applies one game against opp with score in [0..1] (1 is a win).
func update(r, opp glicko, score float64) glicko {
	gVal := g(opp.phi)
	eVal := expected(r.mu, opp.mu, opp.phi)

	v := 1.0 / (gVal * gVal * eVal * (1 - eVal))
	delta := v * gVal * (score - eVal)

	sigma := volatility(r, v, delta)
	phiStar := math.Sqrt(r.phi*r.phi + sigma*sigma)
	phiPrime := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	muPrime := r.mu + phiPrime*phiPrime*gVal*(score-eVal)

	return glicko{mu: muPrime, phi: phiPrime, sigma: sigma}
}

// volatility solves for the new sigma with the Illinois variant of regula falsi.
func volatility(r glicko, v, delta float64) float64 {
	a := math.Log(r.sigma * r.sigma)
	fx := func(x float64) float64 { return f(x, r.phi, v, delta, a) }

	A := a
	var B float64
	if delta*delta > r.phi*r.phi+v {
		B = math.Log(delta*delta - r.phi*r.phi - v)
	} else {
		k := 1.0
		for fx(a-k*Tau) < 0 {
			k++
		}
		B = a - k*Tau
	}

	fA, fB := fx(A), fx(B)
	for i := 0; i < 100 && math.Abs(B-A) > Epsilon; i++ {
		C := A + (A-B)*fA/(fB-fA)
		fC := fx(C)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}
	return math.Exp(A / 2)
}

// g is 1/sqrt(1+3phi^2/pi^2).
func g(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/math.Pi/math.Pi)
}

// expected is the expected score of mu against an opponent (mu2, phi2).
func expected(mu, mu2, phi2 float64) float64 {
	return 1.0 / (1.0 + math.Exp(-g(phi2)*(mu-mu2)))
}

func f(x, phi, v, delta, a float64) float64 {
	ex := math.Exp(x)
	num := ex * (delta*delta - phi*phi - v - ex)
	den := 2.0 * (phi*phi + v + ex) * (phi*phi + v + ex)
	return (num / den) - ((x - a) / (Tau * Tau))
}
