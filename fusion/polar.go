package fusion

import "math"

// PolarPoint is one sample of an airframe polar curve: lift and drag
// coefficients at an angle of attack (degrees).
type PolarPoint struct {
	Aoa float64
	Cl  float64
	Cd  float64
}

// WingsuitPolar describes one airframe: a polar curve sampled in order of
// strictly decreasing angle of attack, plus wing area and mass. Loaded
// once and shared by reference; never mutated.
type WingsuitPolar struct {
	Name string
	// Points ordered by decreasing Aoa (90° down to 0°).
	Points []PolarPoint
	S      float64 // wing area (m²)
	M      float64 // mass (kg)
}

// Coefficient is an interpolated (cl, cd) pair at an angle of attack.
type Coefficient struct {
	Cl  float64
	Cd  float64
	Aoa float64
}

// Interpolate returns coefficients for any target angle of attack.
// Targets outside the table range clamp to the end-point samples.
// Samples are stored in DECREASING AoA order, so the bracketing binary
// search condition is reversed relative to an ascending table.
func (p *WingsuitPolar) Interpolate(targetAoa float64) Coefficient {
	pts := p.Points
	n := len(pts)
	if targetAoa >= pts[0].Aoa {
		return Coefficient{Cl: pts[0].Cl, Cd: pts[0].Cd, Aoa: pts[0].Aoa}
	}
	if targetAoa <= pts[n-1].Aoa {
		return Coefficient{Cl: pts[n-1].Cl, Cd: pts[n-1].Cd, Aoa: pts[n-1].Aoa}
	}

	left, right := 0, n-1
	for right-left > 1 {
		mid := (left + right) / 2
		if pts[mid].Aoa >= targetAoa {
			left = mid
		} else {
			right = mid
		}
	}

	// left has the higher AoA, right the lower.
	t := (pts[left].Aoa - targetAoa) / (pts[left].Aoa - pts[right].Aoa)
	cl := pts[left].Cl + t*(pts[right].Cl-pts[left].Cl)
	cd := pts[left].Cd + t*(pts[right].Cd-pts[left].Cd)
	return Coefficient{Cl: cl, Cd: cd, Aoa: targetAoa}
}

// MinAoa and MaxAoa bound the table range.
func (p *WingsuitPolar) MinAoa() float64 { return p.Points[len(p.Points)-1].Aoa }
func (p *WingsuitPolar) MaxAoa() float64 { return p.Points[0].Aoa }

// WingLoadingFactor computes k = 0.5·rho·S/m, the factor converting
// polar coefficients to the filter's gravity-normalized kl/kd.
func (p *WingsuitPolar) WingLoadingFactor(rho float64) float64 {
	return 0.5 * rho * p.S / p.M
}

// KlKdToAoa converts measured kl/kd back to an approximate angle of
// attack in degrees using the empirical cl/cd-magnitude fit, clamped to
// the usable range.
func KlKdToAoa(kl, kd, altitude float64, polar *WingsuitPolar) float64 {
	rho := Density(altitude, DefaultTempOffsetC)
	k := polar.WingLoadingFactor(rho)
	cl := kl / k * isaGravity
	cd := kd / k * isaGravity
	aoaDeg := 20.874*math.Sqrt(cl*cl+cd*cd) - 1.1733
	return clamp(aoaDeg, 0.0, 35.0)
}

// AuraFivePolar is the Aura 5 wingsuit reference polar.
var AuraFivePolar = &WingsuitPolar{
	Name: "Aura 5",
	S:    2.0,
	M:    77.5,
	Points: []PolarPoint{
		{90, 0.108983764628346, 1.08733},
		{85, 0.185891612981445, 1.07550125},
		{80, 0.210159022016888, 1.04624},
		{75, 0.236338092608918, 1.00421875},
		{70, 0.276174302741996, 0.95411},
		{65, 0.321902830713497, 0.90058625},
		{60, 0.363958657340666, 0.848320000000001},
		{55, 0.400686482484531, 0.80198375},
		{50, 0.443431551630603, 0.77},
		{45, 0.501784571242392, 0.741},
		{44, 0.516614859906805, 0.735},
		{43, 0.533624176122725, 0.73},
		{42, 0.548480181747974, 0.72},
		{41, 0.564801482459875, 0.71},
		{40, 0.582677701039275, 0.7},
		{39, 0.602181355660182, 0.69},
		{38, 0.623365404678184, 0.68},
		{37, 0.646260864379027, 0.67},
		{36, 0.670874519347125, 0.66},
		{35, 0.70576750505298, 0.658},
		{34, 0.759140843806183, 0.67},
		{33, 0.810986085509315, 0.677},
		{32, 0.88072260117917, 0.695},
		{31, 0.965501597206807, 0.72},
		{30, 1.05011755421627, 0.74},
		{28, 1.1371, 0.747538425047438},
		{27, 1.15574082635108, 0.715249918087947},
		{26, 1.15539526148586, 0.674507873388006},
		{25, 1.14683928171753, 0.630877095494163},
		{24, 1.11365205723984, 0.578580118018614},
		{23, 1.08461323582186, 0.532820262727508},
		{22, 1.03921292555216, 0.485724926151704},
		{21, 0.973302723371025, 0.430756986106757},
		{20, 0.907945945116896, 0.377696088274903},
		{19, 0.855618188821683, 0.343913198706244},
		{18, 0.805163095460971, 0.313424543901754},
		{17, 0.761810592507725, 0.288863037567478},
		{16, 0.719519027870984, 0.266359012152287},
		{15, 0.677227463234242, 0.245293347914775},
		{14, 0.642590319337377, 0.229111816346851},
		{13, 0.601309850277438, 0.211086840529111},
		{12, 0.568285475029486, 0.197653553200295},
		{11, 0.510492818345571, 0.176255727765257},
		{10, 0.483132714445128, 0.167062404747948},
		{9, 0.461436881892194, 0.160200300064325},
		{8, 0.418045216786326, 0.147611714122478},
		{7, 0.385501467956925, 0.139163945163318},
		{6, 0.342109802851057, 0.129225147214071},
		{5, 0.298718137745189, 0.120800513832024},
		{4, 0.249388066223454, 0.11306209742444},
		{3, 0.207936707770252, 0.108072711176012},
		{2, 0.15266822983265, 0.103569627182967},
		{1, 0.0835826324106472, 0.101395214878043},
		{0, 0.0144970349886442, 0.103059072224655},
	},
}
