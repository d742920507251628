package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sergerad/nolemma/internal/domain"
	"github.com/sergerad/nolemma/internal/encoding"
)

// HTTPSubmitter drives a sequencer over its transport/http SubmitTx
// endpoint, for `-mode driver` running against a separately launched node.
type HTTPSubmitter struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSubmitter creates an HTTPSubmitter targeting baseURL (e.g.
// "http://localhost:8585").
func NewHTTPSubmitter(baseURL string) *HTTPSubmitter {
	return &HTTPSubmitter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type submitResponse struct {
	Hash   string `json:"hash"`
	Sender string `json:"sender"`
	Error  string `json:"error"`
}

// Submit encodes tx canonically and POSTs it to the node's /tx endpoint.
func (s *HTTPSubmitter) Submit(tx *domain.Transaction) (domain.Hash, domain.Address, error) {
	raw, err := encoding.EncodeTransaction(tx)
	if err != nil {
		return domain.Hash{}, domain.Address{}, err
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, s.baseURL+"/tx", bytes.NewReader(raw))
	if err != nil {
		return domain.Hash{}, domain.Address{}, fmt.Errorf("driver: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.Hash{}, domain.Address{}, fmt.Errorf("driver: post tx: %w", err)
	}
	defer resp.Body.Close()

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Hash{}, domain.Address{}, fmt.Errorf("driver: decode response: %w", err)
	}
	if out.Error != "" {
		return domain.Hash{}, domain.Address{}, fmt.Errorf("driver: submit rejected: %s", out.Error)
	}

	return common.HexToHash(out.Hash), common.HexToAddress(out.Sender), nil
}
