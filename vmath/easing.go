package vmath

// EasingFunc maps linear progress in [0, 1] to eased progress in [0, 1]
type EasingFunc func(p float64) float64

// EaseOutCubic decelerates to a stop: strictly increasing, f(0)=0, f(1)=1, f'(1)=0
func EaseOutCubic(p float64) float64 {
	p = Clamp01(p)
	inv := 1 - p
	return 1 - inv*inv*inv
}

// EaseOutQuart is a sharper deceleration with the same endpoint guarantees
func EaseOutQuart(p float64) float64 {
	p = Clamp01(p)
	inv := 1 - p
	return 1 - inv*inv*inv*inv
}

// Lerp interpolates between a and b by t
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
