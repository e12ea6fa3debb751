package trailing

import (
	"trade_bot/internal/models"
	"trade_bot/internal/modules/config"
)

// Candidate кандидат стопа до подтягивания.
type Candidate struct {
	Stop  float64
	Rule  models.TrailRule
	Ratio float64 // прибыль в долях от entry
}

// Policy считает кандидата по позиции, цене и состоянию после Observe.
type Policy interface {
	Candidate(pos models.Position, live float64, st models.TrailState) Candidate
}

// PointsPolicy стоп в пунктах цены: fixed_stop на entry∓offset,
// lock_50 на entry±excursion*fraction после LockTrigger пунктов.
type PointsPolicy struct {
	LockTrigger  float64
	LockFraction float64
	FixedOffset  float64
}

func NewPointsPolicy(cfg config.TrailingConfig) PointsPolicy {
	p := PointsPolicy{
		LockTrigger:  cfg.LockTrigger,
		LockFraction: cfg.LockFraction,
		FixedOffset:  cfg.FixedOffset,
	}
	if p.LockTrigger <= 0 {
		p.LockTrigger = 1000
	}
	if p.LockFraction <= 0 {
		p.LockFraction = 0.5
	}
	if p.FixedOffset <= 0 {
		p.FixedOffset = 500
	}
	return p
}

func (p PointsPolicy) Candidate(pos models.Position, live float64, st models.TrailState) Candidate {
	profit := pos.ProfitPoints(live)
	dir := direction(pos)

	if st.MaxExcursion > p.LockTrigger && profit > 0 {
		return Candidate{
			Stop:  pos.EntryPrice + dir*st.MaxExcursion*p.LockFraction,
			Rule:  models.RuleLock50,
			Ratio: st.MaxExcursion / pos.EntryPrice,
		}
	}
	return Candidate{
		Stop:  pos.EntryPrice - dir*p.FixedOffset,
		Rule:  models.RuleFixedStop,
		Ratio: profit / pos.EntryPrice,
	}
}

// PercentPolicy лестница ступеней в процентах от entry.
// Ступень без StopOffset включает partial_booking.
type PercentPolicy struct {
	cfg config.PercentConfig
}

func NewPercentPolicy(cfg config.PercentConfig) PercentPolicy {
	return PercentPolicy{cfg: cfg}
}

func (p PercentPolicy) Candidate(pos models.Position, live float64, _ models.TrailState) Candidate {
	ratio := pos.ProfitRatio(live)
	dir := direction(pos)

	level, ok := p.level(ratio)
	if !ok {
		return Candidate{
			Stop:  pos.EntryPrice * (1 - dir*p.cfg.FixedStopLossPct),
			Rule:  models.RuleFixedStop,
			Ratio: ratio,
		}
	}
	if level.StopOffset == nil {
		return Candidate{
			Stop:  pos.EntryPrice * (1 + dir*ratio*level.BookFraction),
			Rule:  models.RulePartialBooking,
			Ratio: ratio,
		}
	}
	offset := *level.StopOffset
	return Candidate{
		Stop:  pos.EntryPrice * (1 + dir*offset),
		Rule:  models.RuleDynamic,
		Ratio: ratio,
	}
}

// level последняя ступень, до которой дошла прибыль.
func (p PercentPolicy) level(ratio float64) (config.PercentLevel, bool) {
	if ratio < p.cfg.StartProfitPct {
		return config.PercentLevel{}, false
	}
	var (
		found config.PercentLevel
		ok    bool
	)
	for _, l := range p.cfg.Levels {
		if ratio >= l.MinProfitPct {
			found, ok = l, true
		}
	}
	return found, ok
}

// NewPolicy по trailing.policy. Лестница процентов читается только для percent.
func NewPolicy(cfg config.TrailingConfig) Policy {
	if cfg.Policy == config.PolicyPercent {
		return NewPercentPolicy(cfg.Percent)
	}
	return NewPointsPolicy(cfg)
}

func direction(pos models.Position) float64 {
	if pos.Side() == models.PosShort {
		return -1
	}
	return 1
}
