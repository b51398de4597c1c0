package holiday

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotConfigured は API キーが設定されていない場合に返されます。
var ErrNotConfigured = errors.New("holiday: calendarific api key is not configured")

// ErrUnexpectedResponse は Calendarific の応答が解釈できない場合に返されます。
var ErrUnexpectedResponse = errors.New("holiday: unexpected calendarific response")

// DefaultBaseURL は Calendarific API のベース URL です。
const DefaultBaseURL = "https://calendarific.com/api/v2"

const maxErrorBody = 512

// HTTPClient はテスト差し替え用の HTTP クライアントです。
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CalendarificOracle は Calendarific の holidays API で祝日を判定します。
type CalendarificOracle struct {
	client      HTTPClient
	baseURL     string
	apiKey      string
	holidayType string
	logger      *zap.Logger
}

// Option は CalendarificOracle の設定を変更します。
type Option func(*CalendarificOracle)

// WithHTTPClient は利用する HTTP クライアントを差し替えます。
func WithHTTPClient(client HTTPClient) Option {
	return func(o *CalendarificOracle) {
		if client != nil {
			o.client = client
		}
	}
}

// WithBaseURL は API のベース URL を差し替えます。
func WithBaseURL(baseURL string) Option {
	return func(o *CalendarificOracle) {
		if baseURL != "" {
			o.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHolidayType は問い合わせる祝日種別 (national, local, religious, observance) を指定します。
func WithHolidayType(holidayType string) Option {
	return func(o *CalendarificOracle) {
		if holidayType != "" {
			o.holidayType = holidayType
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *zap.Logger) Option {
	return func(o *CalendarificOracle) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewCalendarificOracle は CalendarificOracle を生成します。
// タイムアウトは呼び出し側のコンテキストで制御します。
func NewCalendarificOracle(apiKey string, opts ...Option) *CalendarificOracle {
	o := &CalendarificOracle{
		client:      &http.Client{},
		baseURL:     DefaultBaseURL,
		apiKey:      strings.TrimSpace(apiKey),
		holidayType: "national",
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

type calendarificEnvelope struct {
	Meta struct {
		Code        int    `json:"code"`
		ErrorType   string `json:"error_type"`
		ErrorDetail string `json:"error_detail"`
	} `json:"meta"`
	Response json.RawMessage `json:"response"`
}

type calendarificHolidays struct {
	Holidays []struct {
		Name string `json:"name"`
	} `json:"holidays"`
}

// IsHoliday は date の暦日が countryCode の国で祝日かどうかを返します。
func (o *CalendarificOracle) IsHoliday(ctx context.Context, date time.Time, countryCode string) (bool, error) {
	if o.apiKey == "" {
		return false, ErrNotConfigured
	}

	country := NormalizeCountryCode(countryCode)
	if country == "" {
		return false, fmt.Errorf("holiday: country code is required")
	}

	query := url.Values{}
	query.Set("api_key", o.apiKey)
	query.Set("country", country)
	query.Set("year", strconv.Itoa(date.Year()))
	query.Set("month", strconv.Itoa(int(date.Month())))
	query.Set("day", strconv.Itoa(date.Day()))
	query.Set("type", o.holidayType)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/holidays?"+query.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("holiday: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("holiday: request calendarific: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return false, fmt.Errorf("%w: status %d: %s", ErrUnexpectedResponse, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope calendarificEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	if envelope.Meta.Code != 0 && envelope.Meta.Code != http.StatusOK {
		return false, fmt.Errorf("%w: meta code %d: %s", ErrUnexpectedResponse, envelope.Meta.Code, envelope.Meta.ErrorDetail)
	}

	// 該当日に祝日が無い場合、response はオブジェクトではなく空配列になる。
	raw := strings.TrimSpace(string(envelope.Response))
	if raw == "" || raw == "null" || strings.HasPrefix(raw, "[") {
		return false, nil
	}

	var holidays calendarificHolidays
	if err := json.Unmarshal(envelope.Response, &holidays); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}

	if len(holidays.Holidays) > 0 {
		o.logger.Debug("holiday found",
			zap.String("country", country),
			zap.String("date", date.Format("2006-01-02")),
			zap.String("name", holidays.Holidays[0].Name))
		return true, nil
	}
	return false, nil
}
