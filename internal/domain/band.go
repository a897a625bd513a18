package domain

type MasteryBand string

const (
	BandNovice     MasteryBand = "novice"
	BandDeveloping MasteryBand = "developing"
	BandProficient MasteryBand = "proficient"
	BandStrong     MasteryBand = "strong"
	BandMastered   MasteryBand = "mastered"
)

func ComputeBand(pKnow float64) MasteryBand {
	switch {
	case pKnow < 0.60:
		return BandNovice
	case pKnow < 0.75:
		return BandDeveloping
	case pKnow < 0.85:
		return BandProficient
	case pKnow < 0.95:
		return BandStrong
	default:
		return BandMastered
	}
}

// BandBehavior holds the scheduling constants of a band.
// LadderDays is the fixed interval used when no forgetting rate is
// configured; MinimumDays is the floor applied to decay-based intervals.
type BandBehavior struct {
	Band        MasteryBand
	LadderDays  int
	MinimumDays int
}

var BandBehaviors = map[MasteryBand]BandBehavior{
	BandNovice:     {Band: BandNovice, LadderDays: 0, MinimumDays: 0},
	BandDeveloping: {Band: BandDeveloping, LadderDays: 1, MinimumDays: 1},
	BandProficient: {Band: BandProficient, LadderDays: 3, MinimumDays: 3},
	BandStrong:     {Band: BandStrong, LadderDays: 7, MinimumDays: 0},
	BandMastered:   {Band: BandMastered, LadderDays: 14, MinimumDays: 0},
}

func GetBandBehavior(band MasteryBand) BandBehavior {
	if b, ok := BandBehaviors[band]; ok {
		return b
	}
	return BandBehaviors[BandNovice]
}

// LadderDays returns the no-decay review interval for pKnow.
func LadderDays(pKnow float64) int {
	return GetBandBehavior(ComputeBand(pKnow)).LadderDays
}

// MinimumDays returns the minimum-day guard for pKnow.
func MinimumDays(pKnow float64) int {
	return GetBandBehavior(ComputeBand(pKnow)).MinimumDays
}

func BandReason(pKnow float64) string {
	switch ComputeBand(pKnow) {
	case BandNovice:
		return "p_know < 0.60"
	case BandDeveloping:
		return "0.60 <= p_know < 0.75"
	case BandProficient:
		return "0.75 <= p_know < 0.85"
	case BandStrong:
		return "0.85 <= p_know < 0.95"
	default:
		return "p_know >= 0.95"
	}
}

func AllBands() []MasteryBand {
	return []MasteryBand{BandNovice, BandDeveloping, BandProficient, BandStrong, BandMastered}
}
