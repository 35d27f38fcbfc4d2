package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ppriyankuu/knowledgebase/internal/knowledge"
)

// ReplicateRequest is the JSON message sent between nodes: one changed
// variable, in its wire form.
type ReplicateRequest struct {
	Name   string               `json:"name"`
	Record knowledge.WireRecord `json:"record"`
}

// Replicator drains a knowledge.Context's global modified-set and pushes
// each entry to the replicas responsible for its name (§6.2). It never
// reads through the context for anything other than that drain: the
// context's own external-update merge rule is what makes the eventual
// application idempotent and order-tolerant.
type Replicator struct {
	selfID     string
	membership *Membership
	ctx        *knowledge.Context
	httpClient *http.Client
	logger     *log.Logger

	// Quorum parameters: for strong consistency the caller should pick
	// W + R > N, but nothing here enforces that.
	N int
	W int
}

// NewReplicator builds a Replicator. logger may be nil.
func NewReplicator(selfID string, m *Membership, ctx *knowledge.Context, n, w int, logger *log.Logger) *Replicator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Replicator{
		selfID:     selfID,
		membership: m,
		ctx:        ctx,
		N:          n,
		W:          w,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
	}
}

// Drain pushes the current global modified-set to replicas and resets
// each entry that met its write quorum (§6.2's drain-serialise-send-reset
// cycle). Entries that fail to reach quorum, including because the
// deadline in ctx elapsed, are left in the modified-set so the next Drain
// retries them.
func (rep *Replicator) Drain(ctx context.Context) error {
	modified := rep.ctx.GetModifieds()
	if len(modified) == 0 {
		return nil
	}

	failed := make(map[string]bool)
	for name, record := range modified {
		if err := rep.replicateOne(ctx, name, record); err != nil {
			failed[name] = true
			rep.logger.Warn("replicate failed", "name", name, "err", err)
		}
	}

	for name := range modified {
		if !failed[name] {
			rep.ctx.ResetModifiedName(name)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("transport: %d entries failed to reach write quorum", len(failed))
	}
	return nil
}

func (rep *Replicator) replicateOne(ctx context.Context, name string, record knowledge.KnowledgeRecord) error {
	replicas := rep.membership.ReplicaNodes(name, rep.N)
	peers := rep.peersOnly(replicas)

	type result struct {
		nodeID string
		err    error
	}
	results := make(chan result, len(peers))
	for _, peer := range peers {
		go func(p *Node) {
			err := rep.sendReplicateRequest(ctx, p, name, record)
			results <- result{p.ID, err}
		}(peer)
	}

	acks := 1 // self already holds the write
	var errs []error
	for range peers {
		r := <-results
		if r.err == nil {
			acks++
		} else {
			errs = append(errs, fmt.Errorf("node %s: %w", r.nodeID, r.err))
		}
	}
	if acks >= rep.W {
		return nil
	}
	return fmt.Errorf("write quorum not met (%d/%d), errors: %v", acks, rep.W, errs)
}

// sendReplicateRequest posts a single entry to peer, making up to three
// attempts with exponential backoff between them (100ms, then 200ms).
func (rep *Replicator) sendReplicateRequest(ctx context.Context, peer *Node, name string, record knowledge.KnowledgeRecord) error {
	body := ReplicateRequest{Name: name, Record: record.ToWire()}
	const maxRetries = 3

	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))*100) * time.Millisecond
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err := rep.doHTTPReplicate(ctx, peer, body)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("replicate to %s after %d attempts: %w", peer.ID, maxRetries, lastErr)
}

func (rep *Replicator) doHTTPReplicate(ctx context.Context, peer *Node, body ReplicateRequest) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s/internal/replicate", peer.Address)
	reqCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := rep.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("peer returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func (rep *Replicator) peersOnly(nodes []*Node) []*Node {
	var peers []*Node
	for _, n := range nodes {
		if n.ID != rep.selfID {
			peers = append(peers, n)
		}
	}
	return peers
}

// ApplyInbound applies a peer's replicate request against the local
// context, via the merge rule (§4.5). Called from the HTTP handler that
// serves /internal/replicate.
func (rep *Replicator) ApplyInbound(req ReplicateRequest) int {
	rec := knowledge.FromWire(req.Record)
	settings := knowledge.DefaultUpdateSettings()
	settings.AlwaysDisseminate = false // don't re-broadcast what we received
	return rep.ctx.UpdateRecordFromExternal(req.Name, rec, settings)
}

// Run periodically drains the modified-set until ctx is cancelled.
func (rep *Replicator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := rep.Drain(ctx); err != nil {
				rep.logger.Warn("drain cycle incomplete", "err", err)
			}
		}
	}
}
