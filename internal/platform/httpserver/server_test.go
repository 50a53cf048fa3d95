package httpserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	proposalvoting "referendum/contexts/governance/proposal-voting"
	"referendum/contexts/governance/proposal-voting/domain/entities"
	governancehttp "referendum/contexts/governance/proposal-voting/transport/http"
)

func newTestServer() *Server {
	return New(
		proposalvoting.NewInMemoryModule(nil, slog.Default()),
		slog.Default(),
		":0",
	)
}

func createTestProposal(t *testing.T, server *Server) governancehttp.ProposalResponse {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/proposals",
		strings.NewReader(`{"title":"Adopt treasury budget","description":"Quarterly allocation vote"}`))
	req.Header.Set("X-User-Id", "creator-1")
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var resp governancehttp.ProposalResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	return resp
}

func enableTestVoting(t *testing.T, server *Server, proposalID string, body string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/proposals/"+proposalID+"/enable", strings.NewReader(body))
	req.Header.Set("X-User-Id", "creator-1")
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func castTestVote(server *Server, proposalID string, voter string, agree bool) *httptest.ResponseRecorder {
	body := fmt.Sprintf(`{"is_agree":%t}`, agree)
	req := httptest.NewRequest(http.MethodPost, "/v1/proposals/"+proposalID+"/votes", strings.NewReader(body))
	req.Header.Set("X-User-Id", voter)
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func TestProposalVotingFlow(t *testing.T) {
	server := newTestServer()
	server.governance.Store.SetNow(time.UnixMilli(500).UTC())

	proposal := createTestProposal(t, server)
	if proposal.ProposalID == "" {
		t.Fatalf("expected proposal id to be assigned")
	}
	if proposal.Enabled {
		t.Fatalf("expected new proposal to start with voting disabled")
	}

	enableTestVoting(t, server, proposal.ProposalID,
		`{"enabled":true,"start_ts":1000,"end_ts":2000,"min_voting_count":3,"passing_threshold_pct":50}`)

	server.governance.Store.SetNow(time.UnixMilli(1500).UTC())

	rr := castTestVote(server, proposal.ProposalID, "voter-1", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var vote governancehttp.VoteResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &vote); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if vote.TS != 1500 || !vote.IsAgree {
		t.Fatalf("unexpected vote response: %+v", vote)
	}
	if vote.EvidenceID == "" {
		t.Fatalf("expected vote to carry an evidence id")
	}

	if rr := castTestVote(server, proposal.ProposalID, "voter-1", false); rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate vote, got %d body=%s", rr.Code, rr.Body.String())
	}
	if rr := castTestVote(server, proposal.ProposalID, "voter-2", true); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if rr := castTestVote(server, proposal.ProposalID, "voter-3", false); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/proposals/"+proposal.ProposalID+"/status", nil)
	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var status governancehttp.ProposalStatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if !status.Open || status.Ended {
		t.Fatalf("expected open window at ts 1500, got %+v", status)
	}
	if !status.QuorumMet || status.BallotCount != 3 {
		t.Fatalf("expected quorum with 3 ballots, got %+v", status)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/proposals/"+proposal.ProposalID+"/tally", nil)
	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 while window is open, got %d body=%s", rr.Code, rr.Body.String())
	}

	server.governance.Store.SetNow(time.UnixMilli(2001).UTC())

	req = httptest.NewRequest(http.MethodGet, "/v1/proposals/"+proposal.ProposalID+"/tally", nil)
	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var tally governancehttp.TallyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &tally); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if tally.Agree != 2 || tally.Disagree != 1 || tally.Total != 3 || !tally.Passed {
		t.Fatalf("unexpected tally: %+v", tally)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/evidence/"+vote.EvidenceID, nil)
	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var evidence governancehttp.EvidenceResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &evidence); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if evidence.Name != entities.EvidenceName || evidence.OwnerAddress != "voter-1" {
		t.Fatalf("unexpected evidence: %+v", evidence)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/voters/voter-1/evidence", nil)
	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var owned governancehttp.EvidenceListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &owned); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if len(owned.Items) != 1 || owned.Items[0].EvidenceID != vote.EvidenceID {
		t.Fatalf("unexpected owner evidence: %+v", owned)
	}
}

func TestCreateProposalRequiresUserHeader(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/v1/proposals", strings.NewReader(`{"title":"No header"}`))
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCastVoteRequiresUserHeader(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/v1/proposals/prop-1/votes", strings.NewReader(`{"is_agree":true}`))
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCreateProposalRejectsMalformedJSON(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/v1/proposals", strings.NewReader(`{"title":`))
	req.Header.Set("X-User-Id", "creator-1")
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestGetUnknownProposalReturnsNotFound(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/v1/proposals/missing", nil)
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCastVoteBeforeVotingEnabledReturnsConflict(t *testing.T) {
	server := newTestServer()
	server.governance.Store.SetNow(time.UnixMilli(500).UTC())

	proposal := createTestProposal(t, server)
	rr := castTestVote(server, proposal.ProposalID, "voter-1", true)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}

	var errResp governancehttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if errResp.Code != "voting_not_enabled" {
		t.Fatalf("expected voting_not_enabled, got %q", errResp.Code)
	}
}

func TestCastVoteWindowEdges(t *testing.T) {
	server := newTestServer()
	server.governance.Store.SetNow(time.UnixMilli(500).UTC())

	proposal := createTestProposal(t, server)
	enableTestVoting(t, server, proposal.ProposalID,
		`{"enabled":true,"start_ts":1000,"end_ts":2000,"min_voting_count":1,"passing_threshold_pct":50}`)

	server.governance.Store.SetNow(time.UnixMilli(999).UTC())
	if rr := castTestVote(server, proposal.ProposalID, "early-bird", true); rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 before start_ts, got %d body=%s", rr.Code, rr.Body.String())
	}

	server.governance.Store.SetNow(time.UnixMilli(1000).UTC())
	if rr := castTestVote(server, proposal.ProposalID, "on-the-dot", true); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 at start_ts, got %d body=%s", rr.Code, rr.Body.String())
	}

	server.governance.Store.SetNow(time.UnixMilli(2000).UTC())
	if rr := castTestVote(server, proposal.ProposalID, "last-call", false); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 at end_ts, got %d body=%s", rr.Code, rr.Body.String())
	}

	server.governance.Store.SetNow(time.UnixMilli(2001).UTC())
	if rr := castTestVote(server, proposal.ProposalID, "too-late", true); rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 after end_ts, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestTallyBelowQuorumReturnsConflict(t *testing.T) {
	server := newTestServer()
	server.governance.Store.SetNow(time.UnixMilli(500).UTC())

	proposal := createTestProposal(t, server)
	enableTestVoting(t, server, proposal.ProposalID,
		`{"enabled":true,"start_ts":1000,"end_ts":2000,"min_voting_count":3,"passing_threshold_pct":50}`)

	server.governance.Store.SetNow(time.UnixMilli(1500).UTC())
	if rr := castTestVote(server, proposal.ProposalID, "voter-1", true); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if rr := castTestVote(server, proposal.ProposalID, "voter-2", true); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	server.governance.Store.SetNow(time.UnixMilli(2500).UTC())
	req := httptest.NewRequest(http.MethodGet, "/v1/proposals/"+proposal.ProposalID+"/tally", nil)
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}

	var errResp governancehttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if errResp.Code != "quorum_not_met" {
		t.Fatalf("expected quorum_not_met, got %q", errResp.Code)
	}
}

func TestListProposalsReturnsSeededItems(t *testing.T) {
	server := newTestServer()
	server.governance.Store.SetNow(time.UnixMilli(500).UTC())

	first := createTestProposal(t, server)
	second := createTestProposal(t, server)

	req := httptest.NewRequest(http.MethodGet, "/v1/proposals", nil)
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var list governancehttp.ProposalListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 proposals, got %d", len(list.Items))
	}
	seen := map[string]bool{}
	for _, item := range list.Items {
		seen[item.ProposalID] = true
	}
	if !seen[first.ProposalID] || !seen[second.ProposalID] {
		t.Fatalf("expected both proposals in listing, got %+v", list.Items)
	}
}
