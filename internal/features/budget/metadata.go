package budget

import (
	"encoding/json"
	"fmt"
	"strings"

	"irys-monitor/internal/clients_api/irys"
)

// Metadata is the collection document kept alive on Irys by the upload step.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	ExternalURL string `json:"external_url"`
}

func WhyPhiMetadata() Metadata {
	return Metadata{
		Name:        "Why Phi",
		Description: "A place to shape onchain yourself",
		Image:       "https://gateway.irys.xyz/H2OgtiAtsJRB8svr4d-kV2BtAE4BTI_q0wtAn5aKjcU",
		ExternalURL: "https://phiprotocol.xyz/",
	}
}

// UploadSpec describes the fixed document uploaded on every run.
type UploadSpec struct {
	Document   any
	Tags       []irys.Tag
	GatewayURL string
}

// DefaultUploadSpec uploads the Why Phi metadata as JSON.
func DefaultUploadSpec() *UploadSpec {
	return &UploadSpec{
		Document: WhyPhiMetadata(),
		Tags: []irys.Tag{
			{Name: "Content-Type", Value: "application/json"},
			{Name: "application-id", Value: "Why Phi"},
		},
		GatewayURL: irys.DefaultGatewayURL,
	}
}

// Payload is the canonical JSON encoding of the document.
func (s *UploadSpec) Payload() ([]byte, error) {
	if raw, ok := s.Document.([]byte); ok {
		return raw, nil
	}
	data, err := json.Marshal(s.Document)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return data, nil
}

func (s *UploadSpec) contentURL(id string) string {
	gateway := strings.TrimRight(s.GatewayURL, "/")
	if gateway == "" {
		gateway = irys.DefaultGatewayURL
	}
	return gateway + "/" + id
}
