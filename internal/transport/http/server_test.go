package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sergerad/nolemma/internal/crypto"
	"github.com/sergerad/nolemma/internal/domain"
	"github.com/sergerad/nolemma/internal/encoding"
	"github.com/sergerad/nolemma/internal/sequencer"
)

func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testServer(t *testing.T, rl RateLimit) (*httptest.Server, *sequencer.Engine, *crypto.Keypair) {
	t.Helper()
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	eng, err := sequencer.New(sequencer.Config{
		Keypair:         kp,
		WithdrawalDepth: 4,
		SealPeriod:      time.Hour,
		Logger:          silentLogger(),
	})
	if err != nil {
		t.Fatalf("sequencer.New: %v", err)
	}

	srv := NewServer(Config{Port: 0}, eng, nil, rl, silentLogger())
	mux := srv.httpServer.Handler
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, eng, kp
}

func signedTx(t *testing.T, kp *crypto.Keypair, nonce uint64) *domain.Transaction {
	t.Helper()
	to := kp.Address
	tx := domain.NewDynamicTransaction(domain.DynamicTxData{
		ChainID: big.NewInt(1337), Nonce: nonce,
		MaxPriorityFeePerGas: big.NewInt(1), MaxFeePerGas: big.NewInt(2),
		GasLimit: 21000, To: &to, Value: big.NewInt(1),
	})
	if err := encoding.SignTransaction(kp, tx); err != nil {
		t.Fatalf("SignTransaction: %v", err)
	}
	return tx
}

func TestHealthEndpoint(t *testing.T) {
	ts, _, _ := testServer(t, RateLimit{})
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestSubmitTxAcceptsValidTransaction(t *testing.T) {
	ts, _, kp := testServer(t, RateLimit{})
	tx := signedTx(t, kp, 0)
	raw, err := encoding.EncodeTransaction(tx)
	if err != nil {
		t.Fatalf("EncodeTransaction: %v", err)
	}

	resp, err := http.Post(ts.URL+"/tx", "application/octet-stream", bytesReader(raw))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Sender != kp.Address.Hex() {
		t.Errorf("sender = %s, want %s", out.Sender, kp.Address.Hex())
	}
}

func TestSubmitTxRejectsMalformedBody(t *testing.T) {
	ts, _, _ := testServer(t, RateLimit{})
	resp, err := http.Post(ts.URL+"/tx", "application/octet-stream", bytesReader([]byte{0xFF, 0x00}))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSubmitTxRejectsDuplicate(t *testing.T) {
	ts, _, kp := testServer(t, RateLimit{})
	tx := signedTx(t, kp, 0)
	raw, err := encoding.EncodeTransaction(tx)
	if err != nil {
		t.Fatalf("EncodeTransaction: %v", err)
	}

	resp1, err := http.Post(ts.URL+"/tx", "application/octet-stream", bytesReader(raw))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	resp1.Body.Close()

	resp2, err := http.Post(ts.URL+"/tx", "application/octet-stream", bytesReader(raw))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409 on resubmission", resp2.StatusCode)
	}
}

type fakeRateLimiter struct{ allow bool }

func (f fakeRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return f.allow, nil
}

func TestSubmitTxHonorsRateLimiter(t *testing.T) {
	ts, _, kp := testServer(t, RateLimit{Limiter: fakeRateLimiter{allow: false}, Limit: 1, Window: time.Second})
	tx := signedTx(t, kp, 0)
	raw, err := encoding.EncodeTransaction(tx)
	if err != nil {
		t.Fatalf("EncodeTransaction: %v", err)
	}

	resp, err := http.Post(ts.URL+"/tx", "application/octet-stream", bytesReader(raw))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
}

func TestHeadReturnsNotFoundBeforeAnyBlockSealed(t *testing.T) {
	ts, _, _ := testServer(t, RateLimit{})
	resp, err := http.Get(ts.URL + "/head")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHeadAndGetBlockAfterSealing(t *testing.T) {
	ts, eng, _ := testServer(t, RateLimit{})
	block, err := eng.Seal(context.Background())
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	resp, err := http.Get(ts.URL + "/head")
	if err != nil {
		t.Fatalf("Get /head: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	decoded, err := encoding.DecodeBlock(raw)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	if decoded.Number() != block.Number() {
		t.Errorf("head block number = %d, want %d", decoded.Number(), block.Number())
	}

	resp2, err := http.Get(ts.URL + "/block/0")
	if err != nil {
		t.Fatalf("Get /block/0: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp2.StatusCode)
	}
}

func TestGetBlockNotFound(t *testing.T) {
	ts, _, _ := testServer(t, RateLimit{})
	resp, err := http.Get(ts.URL + "/block/99")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestVerifyBlockAcceptsSelfSealedGenesis(t *testing.T) {
	ts, eng, kp := testServer(t, RateLimit{})
	block, err := eng.Seal(context.Background())
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	raw, err := encoding.EncodeBlock(block)
	if err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}

	resp, err := http.Post(ts.URL+"/verify", "application/octet-stream", bytesReader(raw))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()
	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Valid {
		t.Errorf("expected valid=true, got error %q", out.Error)
	}
	_ = kp
}
