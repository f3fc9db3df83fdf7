package search

// KlineFactors are the factor types the platform computes over kline data.
var KlineFactors = []string{
	"PriceReturn",
	"TrendStrength",
	"PriceVolatility",
	"PriceRange",
	"PricePosition",
	"AvgVolume",
	"VolumeVolatility",
	"VolumeTrend",
	"OBV",
	"PriceVolumeCorrelation",
	"AvgIntradayRange",
	"AvgBodyRatio",
}

// TradeFactors are the factor types the platform computes over raw trades.
var TradeFactors = []string{
	"PriceReturn",
	"TrendStrength",
	"PriceVolatility",
	"PriceRange",
	"PriceAcceleration",
	"PricePosition",
	"AvgVol",
	"VolVolatility",
	"VolSkew",
	"LargeTradeRatio",
	"VolTrend",
	"BuyCount",
	"SellCount",
	"TradeImbalance",
	"BuyVol",
	"SellVol",
	"VolImbalance",
	"NetBuyRatio",
	"AvgTradeSizeRatio",
	"Vwap",
	"PriceVwapDeviation",
	"VwapSlope",
	"OBV",
	"PriceVolumeCorrelation",
	"TradeFrequency",
	"AvgTradeInterval",
	"TradeIntervalStd",
}
