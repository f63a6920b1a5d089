package weather

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"
)

// CacheTTL is how long a cached snapshot counts as fresh. Expired entries
// remain readable as a fallback.
const CacheTTL = 30 * time.Minute

// CacheKey derives the cache key for c by rounding both components to two
// decimals. Readings roughly a kilometre apart share a key.
func CacheKey(c Coordinates) string {
	return roundHalfUp2(c.Latitude) + "," + roundHalfUp2(c.Longitude)
}

// roundHalfUp2 formats v with two decimals, rounding the shortest decimal
// form of v half away from zero as java.util.Formatter does: 0.125 is "0.13"
// and 1.005 is "1.01", where %.2f gives "0.12" and "1.00".
func roundHalfUp2(v float64) string {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(v, 'f', -1, 64))
	if !ok {
		return fmt.Sprintf("%.2f", v)
	}
	r.Abs(r)
	r.Mul(r, big.NewRat(100, 1))
	r.Add(r, big.NewRat(1, 2))

	hundredths := new(big.Int).Quo(r.Num(), r.Denom())
	whole, frac := new(big.Int).QuoRem(hundredths, big.NewInt(100), new(big.Int))

	sign := ""
	if math.Signbit(v) {
		sign = "-"
	}
	return fmt.Sprintf("%s%s.%02d", sign, whole, frac.Int64())
}

// CachedSnapshot is one row of the forecast cache.
type CachedSnapshot struct {
	Key        string
	RawPayload []byte
	PlaceName  string
	Region     string
	Country    string
	Latitude   float64
	Longitude  float64
	CachedAt   time.Time
}

// CachedAtMillis returns the write time as epoch milliseconds.
func (c CachedSnapshot) CachedAtMillis() int64 {
	return c.CachedAt.UnixMilli()
}

// IsExpired reports whether the entry is older than CacheTTL at now.
func (c CachedSnapshot) IsExpired(now time.Time) bool {
	return now.Sub(c.CachedAt) > CacheTTL
}

// Location returns the location info stored alongside the payload.
func (c CachedSnapshot) Location() LocationInfo {
	return LocationInfo{
		Name:      c.PlaceName,
		Region:    c.Region,
		Country:   c.Country,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
	}
}
