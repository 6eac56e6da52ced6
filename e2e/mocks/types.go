package mocks

// Quote is one RAW entry of the pricemultifull response.
type Quote struct {
	FromSymbol      string   `json:"FROMSYMBOL"`
	ToSymbol        string   `json:"TOSYMBOL"`
	Price           float64  `json:"PRICE"`
	LastUpdate      int64    `json:"LASTUPDATE"`
	Change24Hour    *float64 `json:"CHANGE24HOUR,omitempty"`
	ChangePct24Hour *float64 `json:"CHANGEPCT24HOUR,omitempty"`
}

// Bar is one daily bar of the histoday response. Time is in seconds.
type Bar struct {
	Time       int64   `json:"time"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	VolumeFrom float64 `json:"volumefrom"`
	VolumeTo   float64 `json:"volumeto"`
}

// Asset is the subset of the asset data response the server fills in.
type Asset struct {
	Symbol             string         `json:"SYMBOL"`
	Name               string         `json:"NAME"`
	AssetType          string         `json:"ASSET_TYPE"`
	LogoURL            string         `json:"LOGO_URL"`
	LaunchDate         int64          `json:"LAUNCH_DATE"`
	Description        string         `json:"ASSET_DESCRIPTION"`
	WebsiteURL         string         `json:"WEBSITE_URL"`
	PriceUSD           float64        `json:"PRICE_USD"`
	PriceUSDLastUpdate int64          `json:"PRICE_USD_LAST_UPDATE_TS"`
	CirculatingMktCap  float64        `json:"CIRCULATING_MKT_CAP_USD"`
	Volume24hUSD       float64        `json:"SPOT_MOVING_24_HOUR_QUOTE_VOLUME_USD"`
	ChangePct24hUSD    float64        `json:"SPOT_MOVING_24_HOUR_CHANGE_PERCENTAGE_USD"`
	SupplyCirculating  float64        `json:"SUPPLY_CIRCULATING"`
	ToplistBaseRank    map[string]int `json:"TOPLIST_BASE_RANK,omitempty"`
}

// Coin is one entry of the coinlist response.
type Coin struct {
	ID       string `json:"Id"`
	Symbol   string `json:"Symbol"`
	CoinName string `json:"CoinName"`
	ImageURL string `json:"ImageUrl,omitempty"`
}

// TopAsset is one entry of the ranked top-list response. A zero Rank is
// sent as null.
type TopAsset struct {
	Slug     string
	Symbol   string
	Rank     int
	PriceUSD float64
}

func (a TopAsset) payload() map[string]any {
	var rank any
	if a.Rank > 0 {
		rank = a.Rank
	}
	return map[string]any{
		"id":     "id-" + a.Slug,
		"slug":   a.Slug,
		"symbol": a.Symbol,
		"metrics": map[string]any{
			"market_data": map[string]any{"price_usd": a.PriceUSD},
			"marketcap":   map[string]any{"rank": rank},
		},
	}
}

// Float returns a pointer to v for the optional quote fields.
func Float(v float64) *float64 {
	return &v
}
