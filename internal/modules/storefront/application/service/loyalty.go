package service

import (
	"StoreSupport/internal/config"
	"StoreSupport/internal/modules/storefront/domain/bundle"
)

// TierThresholds 消费额或订单数任一达到即进入该等级
type TierThresholds struct {
	PlatinumSpend  float64
	PlatinumOrders int
	GoldSpend      float64
	GoldOrders     int
	SilverSpend    float64
	SilverOrders   int
}

func ThresholdsFromConfig(c config.ContextConfig) TierThresholds {
	return TierThresholds{
		PlatinumSpend:  c.PlatinumSpend,
		PlatinumOrders: c.PlatinumOrders,
		GoldSpend:      c.GoldSpend,
		GoldOrders:     c.GoldOrders,
		SilverSpend:    c.SilverSpend,
		SilverOrders:   c.SilverOrders,
	}
}

func (t TierThresholds) TierFor(spend float64, orders int) bundle.Tier {
	switch {
	case spend > t.PlatinumSpend || orders > t.PlatinumOrders:
		return bundle.TierPlatinum
	case spend > t.GoldSpend || orders > t.GoldOrders:
		return bundle.TierGold
	case spend > t.SilverSpend || orders > t.SilverOrders:
		return bundle.TierSilver
	default:
		return bundle.TierBronze
	}
}
