package source

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oakwood-commons/dview/pkg/view"
)

// DefaultDirectoryURL is the public random-user directory API.
const DefaultDirectoryURL = "https://randomuser.me/api/"

// DirectoryOptions configures Directory.
type DirectoryOptions struct {
	BaseURL string
	// Results is the number of people requested; zero means 25.
	Results int
	// Seed makes the API return the same people on every call.
	Seed string
	// Nationalities restricts results, e.g. "us,gb".
	Nationalities string
}

type directoryResponse struct {
	Results []directoryPerson `json:"results"`
}

type directoryPerson struct {
	Name struct {
		Title string `json:"title"`
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"name"`
	Gender   string `json:"gender"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Nat      string `json:"nat"`
	Location struct {
		City    string `json:"city"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"location"`
	Login struct {
		UUID     string `json:"uuid"`
		Username string `json:"username"`
	} `json:"login"`
	Registered struct {
		Date time.Time `json:"date"`
		Age  int       `json:"age"`
	} `json:"registered"`
}

// Directory fetches people from a random-user style API and flattens each
// into a record keyed by "id".
func Directory(c *Client, opts DirectoryOptions) Source {
	if c == nil {
		c = NewClient()
	}
	base := opts.BaseURL
	if base == "" {
		base = DefaultDirectoryURL
	}
	n := opts.Results
	if n <= 0 {
		n = 25
	}
	query := url.Values{"results": {strconv.Itoa(n)}}
	if opts.Seed != "" {
		query.Set("seed", opts.Seed)
	}
	if opts.Nationalities != "" {
		query.Set("nat", opts.Nationalities)
	}

	return func(ctx context.Context) ([]view.Record, error) {
		var resp directoryResponse
		if err := c.GetJSON(ctx, base, query, &resp); err != nil {
			return nil, err
		}
		out := make([]view.Record, 0, len(resp.Results))
		for _, p := range resp.Results {
			out = append(out, p.record())
		}
		return out, nil
	}
}

func (p directoryPerson) record() view.Record {
	rec := view.Record{
		"id":       p.Login.UUID,
		"username": p.Login.Username,
		"first":    p.Name.First,
		"last":     p.Name.Last,
		"name":     strings.TrimSpace(p.Name.First + " " + p.Name.Last),
		"gender":   p.Gender,
		"email":    p.Email,
		"phone":    p.Phone,
		"city":     p.Location.City,
		"state":    p.Location.State,
		"country":  p.Location.Country,
		"nat":      p.Nat,
	}
	if !p.Registered.Date.IsZero() {
		rec["registered"] = p.Registered.Date
	}
	return rec
}
