package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	proposalvoting "referendum/contexts/governance/proposal-voting"
	governanceerrors "referendum/contexts/governance/proposal-voting/domain/errors"
	governancehttp "referendum/contexts/governance/proposal-voting/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "referendum/internal/platform/httpserver/docs"
)

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	governance proposalvoting.Module
}

func New(
	governance proposalvoting.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		governance: governance,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/proposals", s.handleCreateProposal)
	s.mux.HandleFunc("GET /v1/proposals", s.handleListProposals)
	s.mux.HandleFunc("GET /v1/proposals/{proposal_id}", s.handleGetProposal)
	s.mux.HandleFunc("POST /v1/proposals/{proposal_id}/enable", s.handleEnableVoting)
	s.mux.HandleFunc("GET /v1/proposals/{proposal_id}/status", s.handleProposalStatus)
	s.mux.HandleFunc("POST /v1/proposals/{proposal_id}/votes", s.handleCastVote)
	s.mux.HandleFunc("GET /v1/proposals/{proposal_id}/votes/{address}", s.handleVoterBallot)
	s.mux.HandleFunc("GET /v1/proposals/{proposal_id}/tally", s.handleTally)
	s.mux.HandleFunc("GET /v1/evidence/{evidence_id}", s.handleEvidenceDetail)
	s.mux.HandleFunc("GET /v1/voters/{address}/evidence", s.handleOwnerEvidence)
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	creatorID := r.Header.Get("X-User-Id")
	if creatorID == "" {
		writeGovernanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req governancehttp.CreateProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.governance.Handler.CreateProposalHandler(r.Context(), creatorID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.ListProposalsHandler(r.Context())
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	proposalID := r.PathValue("proposal_id")
	resp, err := s.governance.Handler.GetProposalHandler(r.Context(), proposalID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEnableVoting(w http.ResponseWriter, r *http.Request) {
	callerID := r.Header.Get("X-User-Id")
	if callerID == "" {
		writeGovernanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req governancehttp.EnableVotingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	proposalID := r.PathValue("proposal_id")
	resp, err := s.governance.Handler.EnableVotingHandler(r.Context(), proposalID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProposalStatus(w http.ResponseWriter, r *http.Request) {
	proposalID := r.PathValue("proposal_id")
	resp, err := s.governance.Handler.ProposalStatusHandler(r.Context(), proposalID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	voterAddress := r.Header.Get("X-User-Id")
	if voterAddress == "" {
		writeGovernanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req governancehttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	proposalID := r.PathValue("proposal_id")
	resp, err := s.governance.Handler.CastVoteHandler(r.Context(), proposalID, voterAddress, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVoterBallot(w http.ResponseWriter, r *http.Request) {
	proposalID := r.PathValue("proposal_id")
	address := r.PathValue("address")
	resp, err := s.governance.Handler.VoterBallotHandler(r.Context(), proposalID, address)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	proposalID := r.PathValue("proposal_id")
	resp, err := s.governance.Handler.TallyHandler(r.Context(), proposalID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvidenceDetail(w http.ResponseWriter, r *http.Request) {
	evidenceID := r.PathValue("evidence_id")
	resp, err := s.governance.Handler.EvidenceDetailHandler(r.Context(), evidenceID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOwnerEvidence(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	resp, err := s.governance.Handler.OwnerEvidenceHandler(r.Context(), address)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeGovernanceDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, governanceerrors.ErrProposalNotFound):
		writeGovernanceError(w, http.StatusNotFound, "proposal_not_found", err.Error())
	case errors.Is(err, governanceerrors.ErrBallotNotFound):
		writeGovernanceError(w, http.StatusNotFound, "ballot_not_found", err.Error())
	case errors.Is(err, governanceerrors.ErrEvidenceNotFound):
		writeGovernanceError(w, http.StatusNotFound, "evidence_not_found", err.Error())
	case errors.Is(err, governanceerrors.ErrDuplicateVote):
		writeGovernanceError(w, http.StatusConflict, "duplicate_vote", err.Error())
	case errors.Is(err, governanceerrors.ErrProposalExists):
		writeGovernanceError(w, http.StatusConflict, "proposal_exists", err.Error())
	case errors.Is(err, governanceerrors.ErrVotingNotEnabled):
		writeGovernanceError(w, http.StatusConflict, "voting_not_enabled", err.Error())
	case errors.Is(err, governanceerrors.ErrOutsideVotingPeriod):
		writeGovernanceError(w, http.StatusConflict, "outside_voting_period", err.Error())
	case errors.Is(err, governanceerrors.ErrVotingStillOpen):
		writeGovernanceError(w, http.StatusConflict, "voting_still_open", err.Error())
	case errors.Is(err, governanceerrors.ErrQuorumNotMet):
		writeGovernanceError(w, http.StatusConflict, "quorum_not_met", err.Error())
	case errors.Is(err, governanceerrors.ErrNoBallots):
		writeGovernanceError(w, http.StatusConflict, "no_ballots", err.Error())
	case errors.Is(err, governanceerrors.ErrConflict):
		writeGovernanceError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, governanceerrors.ErrInvalidProposalInput),
		errors.Is(err, governanceerrors.ErrInvalidVoteInput):
		writeGovernanceError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeGovernanceError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeGovernanceError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, governancehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
