package holiday

import (
	"context"
	"time"
)

// StaticOracle は固定の祝日一覧で判定する HolidayOracle です。provider: none の場合やテストで利用します。
type StaticOracle struct {
	days map[string]struct{}
}

// NewStaticOracle は StaticOracle を生成します。キーは "国コード:YYYY-MM-DD" です。
func NewStaticOracle(entries map[string][]time.Time) *StaticOracle {
	o := &StaticOracle{days: make(map[string]struct{})}
	for country, dates := range entries {
		for _, d := range dates {
			o.days[staticKey(country, d)] = struct{}{}
		}
	}
	return o
}

// IsHoliday は登録済みの日付であれば true を返します。
func (o *StaticOracle) IsHoliday(_ context.Context, date time.Time, countryCode string) (bool, error) {
	if o == nil {
		return false, nil
	}
	_, ok := o.days[staticKey(countryCode, date)]
	return ok, nil
}

func staticKey(country string, date time.Time) string {
	return NormalizeCountryCode(country) + ":" + date.Format("2006-01-02")
}
