package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/flatfind-sg/flatfind-cli/internal/dataset"
)

const (
	// DefaultResaleResourceID is the data.gov.sg resource for resale
	// flat prices from Jan 2017 onward.
	DefaultResaleResourceID = "f1765b54-a209-4718-8d38-a39237f502b3"

	// DefaultDatastoreURL is the CKAN datastore search endpoint.
	DefaultDatastoreURL = "https://data.gov.sg/api/action/datastore_search"

	defaultResalePageSize = 1000

	// maxTownTypePages caps a town+type crawl at 500k rows.
	maxTownTypePages = 500

	// maxTownDiscoveryPages samples 10k rows, enough to see every town.
	maxTownDiscoveryPages = 10
)

// ResaleOptions configures the resale dataset client.
type ResaleOptions struct {
	BaseURL    string // datastore search endpoint; default DefaultDatastoreURL
	ResourceID string // default DefaultResaleResourceID
	PageSize   int    // default 1000
}

// ResaleClient pages through the data.gov.sg resale price dataset.
type ResaleClient struct {
	fetcher  Fetcher
	opts     ResaleOptions
	collator *collate.Collator
}

// NewResaleClient creates a resale dataset client on top of a Fetcher.
func NewResaleClient(f Fetcher, opts ResaleOptions) *ResaleClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultDatastoreURL
	}
	if opts.ResourceID == "" {
		opts.ResourceID = DefaultResaleResourceID
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultResalePageSize
	}
	return &ResaleClient{
		fetcher:  f,
		opts:     opts,
		collator: collate.New(language.English),
	}
}

// datastoreEnvelope is the CKAN datastore_search response shape.
type datastoreEnvelope struct {
	Success bool `json:"success"`
	Result  struct {
		Records []datastoreRecord `json:"records"`
		Total   int               `json:"total"`
	} `json:"result"`
}

// datastoreRecord tolerates both field name variants the datastore has
// used over time, and numeric values where strings are expected.
type datastoreRecord struct {
	Town           flexString `json:"town"`
	Block          flexString `json:"block"`
	BlkNo          flexString `json:"blk_no"`
	StreetName     flexString `json:"street_name"`
	Street         flexString `json:"street"`
	FlatType       flexString `json:"flat_type"`
	Month          flexString `json:"month"`
	ResalePrice    flexString `json:"resale_price"`
	RemainingLease flexString `json:"remaining_lease"`
}

// flexString decodes JSON strings, numbers, and null into a string.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

func (r datastoreRecord) toFlatRow() dataset.FlatRow {
	block := string(r.Block)
	if block == "" {
		block = string(r.BlkNo)
	}
	street := string(r.StreetName)
	if street == "" {
		street = string(r.Street)
	}
	return dataset.FlatRow{
		Town:           normUpper(string(r.Town)),
		Block:          normUpper(block),
		StreetName:     normUpper(street),
		FlatType:       normUpper(string(r.FlatType)),
		Month:          strings.TrimSpace(string(r.Month)),
		ResalePrice:    strings.TrimSpace(string(r.ResalePrice)),
		RemainingLease: strings.TrimSpace(string(r.RemainingLease)),
	}
}

func normUpper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func (c *ResaleClient) pageURL(offset int, filters map[string]string) (string, error) {
	v := url.Values{}
	v.Set("resource_id", c.opts.ResourceID)
	v.Set("limit", fmt.Sprintf("%d", c.opts.PageSize))
	v.Set("offset", fmt.Sprintf("%d", offset))
	if len(filters) > 0 {
		blob, err := json.Marshal(filters)
		if err != nil {
			return "", eris.Wrap(err, "resale: encode filters")
		}
		v.Set("filters", string(blob))
	}
	return c.opts.BaseURL + "?" + v.Encode(), nil
}

func (c *ResaleClient) fetchPage(ctx context.Context, offset int, filters map[string]string) (*datastoreEnvelope, error) {
	pageURL, err := c.pageURL(offset, filters)
	if err != nil {
		return nil, err
	}

	body, err := c.fetcher.Download(ctx, pageURL)
	if err != nil {
		return nil, eris.Wrapf(err, "resale: fetch page at offset %d", offset)
	}
	defer body.Close() //nolint:errcheck

	env, err := DecodeJSONObject[datastoreEnvelope](body)
	if err != nil {
		return nil, eris.Wrapf(err, "resale: decode page at offset %d", offset)
	}
	if !env.Success {
		return nil, eris.Errorf("resale: datastore reported failure at offset %d", offset)
	}
	return env, nil
}

// FetchTownType downloads every transaction for one town and flat
// type, pages of pageSize rows at a time. Incomplete records are
// dropped.
func (c *ResaleClient) FetchTownType(ctx context.Context, town, flatType string) ([]dataset.FlatRow, error) {
	log := zap.L().With(
		zap.String("component", "resale"),
		zap.String("town", normUpper(town)),
		zap.String("flat_type", normUpper(flatType)),
	)

	filters := map[string]string{
		"town":      normUpper(town),
		"flat_type": normUpper(flatType),
	}

	var out []dataset.FlatRow
	offset := 0
	for page := 0; page < maxTownTypePages; page++ {
		env, err := c.fetchPage(ctx, offset, filters)
		if err != nil {
			return nil, err
		}

		for _, rec := range env.Result.Records {
			row := rec.toFlatRow()
			if row.Complete() {
				out = append(out, row)
			}
		}

		if len(env.Result.Records) < c.opts.PageSize {
			break
		}
		offset += c.opts.PageSize
	}

	log.Info("fetched resale rows", zap.Int("rows", len(out)))
	return out, nil
}

// FetchTowns downloads transactions for several towns of one flat type.
func (c *ResaleClient) FetchTowns(ctx context.Context, towns []string, flatType string) ([]dataset.FlatRow, error) {
	var all []dataset.FlatRow
	for _, town := range towns {
		rows, err := c.FetchTownType(ctx, town, flatType)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

// Towns samples the unfiltered dataset and returns the distinct town
// names in collation order.
func (c *ResaleClient) Towns(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	offset := 0
	for page := 0; page < maxTownDiscoveryPages; page++ {
		env, err := c.fetchPage(ctx, offset, nil)
		if err != nil {
			return nil, err
		}

		for _, rec := range env.Result.Records {
			if t := normUpper(string(rec.Town)); t != "" {
				seen[t] = struct{}{}
			}
		}

		if len(env.Result.Records) < c.opts.PageSize {
			break
		}
		offset += c.opts.PageSize
	}

	if len(seen) == 0 {
		return nil, eris.New("resale: no towns discovered")
	}

	towns := make([]string, 0, len(seen))
	for t := range seen {
		towns = append(towns, t)
	}
	c.collator.SortStrings(towns)
	return towns, nil
}
