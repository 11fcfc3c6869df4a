package hubspot

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// CreateNote creates a standalone note object with the given body.
func (c *Client) CreateNote(ctx context.Context, body string) (*Object, error) {
	payload := map[string]any{"properties": map[string]string{
		"hs_note_body": body,
		"hs_timestamp": strconv.FormatInt(time.Now().UnixMilli(), 10),
	}}

	raw, err := c.request(ctx, http.MethodPost, "crm/v3/objects/notes", payload)
	if err != nil {
		return nil, err
	}
	return decodeObject(raw)
}

// AssociateNoteWithContact attaches an existing note to a contact's timeline.
func (c *Client) AssociateNoteWithContact(ctx context.Context, noteID, contactID string) error {
	path := fmt.Sprintf("crm/v3/objects/notes/%s/associations/contact/%s/notes_to_contacts", noteID, contactID)
	_, err := c.request(ctx, http.MethodPut, path, nil, http.StatusOK, http.StatusCreated, http.StatusNoContent)
	return err
}
