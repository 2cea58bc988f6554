package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Batch is a cohort record as returned by the member directory.
type Batch struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Stint is one time-boxed association of a person with the program.
type Stint struct {
	ID        int64   `json:"id"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Type      string  `json:"type"`
	Title     *string `json:"title"`
}

// Person is the raw directory record for one member. Most text fields
// are nullable in the upstream API.
type Person struct {
	ID               int64   `json:"id"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	Image            *string `json:"image"`
	Bio              *string `json:"bio"`
	Interests        *string `json:"interests"`
	BeforeRC         *string `json:"before_rc"`
	DuringRC         *string `json:"during_rc"`
	Job              *string `json:"job"`
	Twitter          *string `json:"twitter"`
	Github           *string `json:"github"`
	IsFaculty        bool    `json:"is_faculty"`
	IsHackerSchooler bool    `json:"is_hacker_schooler"`
	Stints           []Stint `json:"stints"`
}

// Client reads from the member directory. Implemented over HTTP in
// production and faked in tests.
type Client interface {
	GetBatches(ctx context.Context) ([]Batch, error)
	GetBatchPeople(ctx context.Context, batchID int64) ([]Person, error)
	GetPerson(ctx context.Context, personID int64) (*Person, error)
	GetSelf(ctx context.Context) (*Person, error)
	GetProfiles(ctx context.Context, limit, offset int) ([]Person, error)
}

type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build directory request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("directory request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("directory request %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode directory response for %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) GetBatches(ctx context.Context) ([]Batch, error) {
	var batches []Batch
	if err := c.get(ctx, "/batches", &batches); err != nil {
		return nil, err
	}
	return batches, nil
}

func (c *HTTPClient) GetBatchPeople(ctx context.Context, batchID int64) ([]Person, error) {
	var people []Person
	if err := c.get(ctx, fmt.Sprintf("/batches/%d/people", batchID), &people); err != nil {
		return nil, err
	}
	return people, nil
}

func (c *HTTPClient) GetPerson(ctx context.Context, personID int64) (*Person, error) {
	var person Person
	if err := c.get(ctx, fmt.Sprintf("/people/%d", personID), &person); err != nil {
		return nil, err
	}
	return &person, nil
}

func (c *HTTPClient) GetSelf(ctx context.Context) (*Person, error) {
	var person Person
	if err := c.get(ctx, "/people/me", &person); err != nil {
		return nil, err
	}
	return &person, nil
}

// GetProfiles pages through the full profile listing; used by the
// one-shot import.
func (c *HTTPClient) GetProfiles(ctx context.Context, limit, offset int) ([]Person, error) {
	var people []Person
	path := fmt.Sprintf("/profiles?limit=%d&offset=%d", limit, offset)
	if err := c.get(ctx, path, &people); err != nil {
		return nil, err
	}
	return people, nil
}
