package models

// Side сторона ордера на бирже.
type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return SideNone
	}
}

// PosSide направление позиции, выводится из знака size.
type PosSide string

const (
	PosLong  PosSide = "long"
	PosShort PosSide = "short"
)

// CloseSide сторона market-ордера, который закрывает позицию.
func (p PosSide) CloseSide() Side {
	if p == PosShort {
		return SideBuy
	}
	return SideSell
}

// EntrySide сторона ордера, который открывает такую позицию.
func (p PosSide) EntrySide() Side {
	if p == PosShort {
		return SideSell
	}
	return SideBuy
}
