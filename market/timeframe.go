package market

import "crypto-portfolio/models"

// DefaultHistoryLimit is used for timeframes without a fixed bar count
const DefaultHistoryLimit = 30

var timeframeLimits = map[models.Timeframe]int{
	models.Timeframe1D:  1,
	models.Timeframe7D:  7,
	models.Timeframe30D: 30,
	models.Timeframe90D: 90,
	models.Timeframe1Y:  365,
	models.TimeframeMax: 1825,
}

// TimeframeLimit returns the number of daily bars to request for tf.
// Unrecognized values, "all" included, fall back to DefaultHistoryLimit.
func TimeframeLimit(tf models.Timeframe) int {
	if n, ok := timeframeLimits[tf]; ok {
		return n
	}
	return DefaultHistoryLimit
}
