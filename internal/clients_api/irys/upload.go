package irys

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// UploadReceipt is the node's acknowledgement of an upload.
type UploadReceipt struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// Upload signs data as a data item and submits it to the node.
func (c *Client) Upload(ctx context.Context, data []byte, tags []Tag) (UploadReceipt, error) {
	item, err := NewDataItem(data, tags, c.key)
	if err != nil {
		return UploadReceipt{}, err
	}

	body, err := c.post(ctx, "/tx/"+c.token, "application/octet-stream", item.Bytes())
	if err != nil {
		return UploadReceipt{}, err
	}

	var receipt UploadReceipt
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &receipt); err != nil {
			return UploadReceipt{}, fmt.Errorf("failed to decode upload response: %w", err)
		}
	}
	if receipt.ID == "" {
		receipt.ID = item.ID()
	}
	return receipt, nil
}
