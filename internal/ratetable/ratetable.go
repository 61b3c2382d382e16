package ratetable

// DefaultRatePercent применяется к кодам, которых нет в таблице.
// Это документированный дефолт, а не "тихий ноль".
const DefaultRatePercent = 5.0

// Table — статический справочник адвалорных ставок (процент от declared value)
// по коду тарифной классификации (HTS).
type Table struct {
	rates map[string]float64
}

func New() *Table {
	return &Table{rates: map[string]float64{
		"8517.62.00": 5.0,  // network communication apparatus
		"8471.30.01": 0.0,  // portable computers
		"6109.10.00": 16.5, // cotton t-shirts
		"6403.99.60": 8.5,  // leather footwear
		"8708.29.50": 2.5,  // motor vehicle body parts
		"9403.60.80": 0.0,  // wooden furniture
		"3926.90.99": 5.3,  // plastic articles
		"7318.15.80": 8.5,  // steel bolts
		"0406.10.00": 10.0, // fresh cheese
		"9503.00.00": 0.0,  // toys
	}}
}

// Rate returns the ad-valorem percent for code and whether the code is known.
// Unknown codes get DefaultRatePercent.
func (t *Table) Rate(code string) (float64, bool) {
	if r, ok := t.rates[code]; ok {
		return r, true
	}
	return DefaultRatePercent, false
}
