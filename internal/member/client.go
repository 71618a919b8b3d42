// Package member provides read-only access to the external membership
// service. Partners reference members by id; this package resolves those
// references to member records and display names.
package member

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/partnerdesk/partnerdesk/internal/apperr"
	"github.com/partnerdesk/partnerdesk/internal/domain"
)

// Client is the narrow read contract against the membership service.
type Client interface {
	// GetMember fetches a member by id. Returns (nil, nil) when the member
	// does not exist.
	GetMember(ctx context.Context, id string) (*domain.Member, error)
}

// HTTPClient talks to the membership service over HTTP.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a membership client. When httpClient is nil a
// client with a connection pool and no global timeout is used; deadlines
// come from the request context.
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		}
	}
	return &HTTPClient{baseURL: baseURL, httpClient: httpClient}
}

// memberPayload is the membership service's wire shape.
type memberPayload struct {
	ID         string `json:"id"`
	LoginEmail string `json:"loginEmail"`
	Contact    struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"contact"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *HTTPClient) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	u := fmt.Sprintf("%s/members/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CategoryUnknown, "building membership request").
			WithLayer(apperr.LayerService)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CategoryDataLayer, "membership service unreachable").
			WithCode("MEMBER_CONNECTION").
			WithSeverity(apperr.SeverityHigh).
			WithLayer(apperr.LayerService)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, apperr.Newf(apperr.CategoryDataLayer, "membership service returned %d for member %s", resp.StatusCode, id).
			WithCode("MEMBER_UPSTREAM").
			WithSeverity(apperr.SeverityHigh).
			WithLayer(apperr.LayerService)
	}

	var payload memberPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperr.Wrap(err, apperr.CategoryDataLayer, "decoding membership response").
			WithCode("MEMBER_DECODE").
			WithLayer(apperr.LayerService)
	}

	return &domain.Member{
		ID:         payload.ID,
		LoginEmail: payload.LoginEmail,
		Contact: domain.MemberContact{
			FirstName: payload.Contact.FirstName,
			LastName:  payload.Contact.LastName,
		},
		Status:    domain.MemberStatus(payload.Status),
		CreatedAt: payload.CreatedAt,
		UpdatedAt: payload.UpdatedAt,
	}, nil
}
