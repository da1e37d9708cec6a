package seoul

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

const (
	// serviceName is both the API path segment and the payload root element.
	serviceName = "ListAirQualityByDistrictService"

	resultElement = "RESULT"
	resultOK      = "INFO-000"

	// maxBodyBytes bounds a single district response; real payloads are a few KB.
	maxBodyBytes = 1 << 20
)

// Client fetches district readings from the Seoul Open API.
// It implements pipeline.Fetcher.
type Client struct {
	apiKey     string
	baseURL    string
	pageSize   int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Seoul Open API client. The timeout bounds each district fetch.
func NewClient(baseURL, apiKey string, pageSize int, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey:   apiKey,
		baseURL:  baseURL,
		pageSize: pageSize,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Fetch retrieves the current readings for one district. Any failure is
// returned as a *domain.FetchError.
func (c *Client) Fetch(ctx context.Context, district domain.DistrictID) ([]domain.RawReading, error) {
	body, err := c.get(ctx, district)
	if err != nil {
		return nil, &domain.FetchError{District: district, Kind: domain.FetchTransport, Err: err}
	}

	readings, err := decodeResponse(district, body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("district fetched", "district", district, "readings", len(readings))
	return readings, nil
}

func (c *Client) requestURL(district domain.DistrictID) string {
	// {base}/{key}/xml/{service}/{start}/{end}/{district}/
	return fmt.Sprintf("%s/%s/xml/%s/1/%d/%s/",
		c.baseURL, url.PathEscape(c.apiKey), serviceName, c.pageSize, url.PathEscape(string(district)))
}

func (c *Client) get(ctx context.Context, district domain.DistrictID) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(district), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL embeds the API key; report the cause only.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("source API error: status %d: %s", resp.StatusCode, snippet)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// decodeResponse interprets one XML payload. The root element decides the
// variant: a bare RESULT envelope, the service payload, or anything else.
func decodeResponse(district domain.DistrictID, body []byte) ([]domain.RawReading, error) {
	var env envelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, &domain.FetchError{District: district, Kind: domain.FetchTransport, Err: fmt.Errorf("decode xml: %w", err)}
	}

	switch env.XMLName.Local {
	case resultElement:
		if env.Code != resultOK {
			return nil, rejected(district, env.Code, env.Message)
		}
		return nil, &domain.FetchError{
			District: district,
			Kind:     domain.FetchMalformedResponse,
			Message:  fmt.Sprintf("%s not found in response (result %s)", serviceName, env.Code),
		}
	case serviceName:
		if env.Result != nil && env.Result.Code != "" && env.Result.Code != resultOK {
			return nil, rejected(district, env.Result.Code, env.Result.Message)
		}
	default:
		return nil, &domain.FetchError{
			District: district,
			Kind:     domain.FetchMalformedResponse,
			Message:  fmt.Sprintf("%s not found in response (root element %q)", serviceName, env.XMLName.Local),
		}
	}

	// Repeated <row> elements decode into the slice whether the source sent
	// one record or many.
	readings := make([]domain.RawReading, 0, len(env.Rows))
	for _, r := range env.Rows {
		readings = append(readings, r.toReading())
	}
	return readings, nil
}

func rejected(district domain.DistrictID, code, message string) *domain.FetchError {
	return &domain.FetchError{
		District: district,
		Kind:     domain.FetchSourceRejected,
		Code:     code,
		Message:  message,
	}
}

// Seoul Open API XML types.

// envelope matches any root element. For a bare <RESULT> root, Code and
// Message are its children; for the service root, Result and Rows are.
type envelope struct {
	XMLName    xml.Name
	Code       string  `xml:"CODE"`
	Message    string  `xml:"MESSAGE"`
	TotalCount string  `xml:"list_total_count"`
	Result     *result `xml:"RESULT"`
	Rows       []row   `xml:"row"`
}

type result struct {
	Code    string `xml:"CODE"`
	Message string `xml:"MESSAGE"`
}

type row struct {
	MeasuredAt   string `xml:"MSRDATE"`
	DistrictCode string `xml:"MSRADMCODE"`
	Station      string `xml:"MSRSTENAME"`
	MaxIndex     string `xml:"MAXINDEX"`
	Grade        string `xml:"GRADE"`
	Pollutant    string `xml:"POLLUTANT"`
	Nitrogen     string `xml:"NITROGEN"`
	Ozone        string `xml:"OZONE"`
	Carbon       string `xml:"CARBON"`
	Sulfurous    string `xml:"SULFUROUS"`
	PM10         string `xml:"PM10"`
	PM25         string `xml:"PM25"`
}

func (r row) toReading() domain.RawReading {
	return domain.RawReading{
		MeasuredAt:   r.MeasuredAt,
		DistrictCode: r.DistrictCode,
		Station:      r.Station,
		Grade:        r.Grade,
		Carbon:       r.Carbon,
		PM10:         r.PM10,
		MaxIndex:     r.MaxIndex,
		Pollutant:    r.Pollutant,
		Nitrogen:     r.Nitrogen,
		Ozone:        r.Ozone,
		Sulfurous:    r.Sulfurous,
		PM25:         r.PM25,
	}
}
