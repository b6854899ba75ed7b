// Package storage wraps the hosted Supabase backend behind typed
// repositories. Row-level authorization is enforced by the backend itself:
// every call takes the caller's Authorization header and forwards it, so a
// request can only touch rows its JWT grants.
package storage

import (
	"fmt"

	supabase "github.com/supabase-community/supabase-go"
)

// Client holds the connection parameters for the persistence collaborator.
type Client struct {
	url     string
	anonKey string
}

// NewClient validates the configuration and returns a client. No connection
// is opened here; PostgREST is plain HTTP.
func NewClient(url, anonKey string) (*Client, error) {
	if url == "" || anonKey == "" {
		return nil, fmt.Errorf("supabase credentials missing: url or anon key not set")
	}
	return &Client{url: url, anonKey: anonKey}, nil
}

// session builds a per-request Supabase client carrying the forwarded
// credential, so PostgREST evaluates row-level policies as the caller.
func (c *Client) session(credential string) (*supabase.Client, error) {
	headers := map[string]string{}
	if credential != "" {
		headers["Authorization"] = credential
	}
	return supabase.NewClient(c.url, c.anonKey, &supabase.ClientOptions{Headers: headers})
}

// Spaces returns a typed repository for the spaces lookup table.
func (c *Client) Spaces() *SpaceRepository {
	return &SpaceRepository{client: c}
}

// Records returns a typed repository for study records and their relations.
func (c *Client) Records() *RecordRepository {
	return &RecordRepository{client: c}
}

// Feedback returns a typed repository for per-(user, space) feedback rows.
func (c *Client) Feedback() *FeedbackRepository {
	return &FeedbackRepository{client: c}
}

// Emotions returns a label repository over the emotions table.
func (c *Client) Emotions() *LabelRepository {
	return &LabelRepository{client: c, table: "emotions"}
}

// MoodTags returns a label repository over the mood_tags table.
func (c *Client) MoodTags() *LabelRepository {
	return &LabelRepository{client: c, table: "mood_tags"}
}
