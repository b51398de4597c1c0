package holiday

import "strings"

// alpha3ToAlpha2 は利用者プロフィールで使われる ISO 3166-1 alpha-3 を Calendarific の alpha-2 に変換します。
var alpha3ToAlpha2 = map[string]string{
	"ARE": "AE",
	"AUS": "AU",
	"BRA": "BR",
	"CAN": "CA",
	"CHN": "CN",
	"DEU": "DE",
	"ESP": "ES",
	"FRA": "FR",
	"GBR": "GB",
	"IDN": "ID",
	"IND": "IN",
	"ITA": "IT",
	"JPN": "JP",
	"KOR": "KR",
	"MEX": "MX",
	"NLD": "NL",
	"PHL": "PH",
	"SGP": "SG",
	"THA": "TH",
	"USA": "US",
	"VNM": "VN",
	"ZAF": "ZA",
}

// NormalizeCountryCode は国コードを大文字の alpha-2 に揃えます。未知の alpha-3 はそのまま返します。
func NormalizeCountryCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if alpha2, ok := alpha3ToAlpha2[code]; ok {
		return alpha2
	}
	return code
}
