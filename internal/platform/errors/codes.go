// Package errors provides structured error handling for the arena engine.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Session errors
	CodeSessionInvalidMode            Code = "SESSION_INVALID_MODE"
	CodeSessionInvalidBoardSize       Code = "SESSION_INVALID_BOARD_SIZE"
	CodeSessionSeatUnbound            Code = "SESSION_SEAT_UNBOUND"
	CodeSessionInvalidPhaseTransition Code = "SESSION_INVALID_PHASE_TRANSITION"
	CodeSessionPhaseDisallowsOp       Code = "SESSION_PHASE_DISALLOWS_OPERATION"
	CodeSessionHistoryCorrupt         Code = "SESSION_HISTORY_CORRUPT"
	CodeSessionProcessingBusy         Code = "SESSION_PROCESSING_BUSY"

	// Move errors
	CodeMoveOutOfBounds    Code = "MOVE_OUT_OF_BOUNDS"
	CodeMoveOccupied       Code = "MOVE_OCCUPIED"
	CodeMoveSuicide        Code = "MOVE_SUICIDE"
	CodeMoveKoViolation    Code = "MOVE_KO_VIOLATION"
	CodeMoveWrongSeat      Code = "MOVE_WRONG_SEAT"
	CodeMoveInvalidPayload Code = "MOVE_INVALID_PAYLOAD"

	// Scoring errors
	CodeScoringAnalyzerFailed  Code = "SCORING_ANALYZER_FAILED"
	CodeScoringNotTerminal     Code = "SCORING_NOT_TERMINAL"
	CodeScoringAlreadyAttached Code = "SCORING_ALREADY_ATTACHED"

	// Settlement errors
	CodeSettlementParticipantMissing Code = "SETTLEMENT_PARTICIPANT_MISSING"
	CodeSettlementAlreadySettled     Code = "SETTLEMENT_ALREADY_SETTLED"

	// Bot errors
	CodeBotSeatNotBot    Code = "BOT_SEAT_NOT_BOT"
	CodeBotPolicyFailed  Code = "BOT_POLICY_FAILED"
	CodeBotNoLegalAction Code = "BOT_NO_LEGAL_ACTION"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"

	// Random/seed errors
	CodeSeedOutOfRange Code = "SEED_OUT_OF_RANGE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeSessionInvalidMode,
		CodeSessionInvalidBoardSize,
		CodeMoveOutOfBounds,
		CodeMoveOccupied,
		CodeMoveSuicide,
		CodeMoveKoViolation,
		CodeMoveInvalidPayload,
		CodeSeedOutOfRange:
		return codes.InvalidArgument

	// FailedPrecondition - state disallows the operation
	case CodeSessionSeatUnbound,
		CodeSessionInvalidPhaseTransition,
		CodeSessionPhaseDisallowsOp,
		CodeMoveWrongSeat,
		CodeScoringNotTerminal,
		CodeScoringAlreadyAttached,
		CodeSettlementAlreadySettled,
		CodeBotSeatNotBot:
		return codes.FailedPrecondition

	// Aborted - concurrent ownership conflicts
	case CodeSessionProcessingBusy:
		return codes.Aborted

	// DataLoss - corruption guard trips
	case CodeSessionHistoryCorrupt:
		return codes.DataLoss

	// Unavailable - dependency failures
	case CodeScoringAnalyzerFailed,
		CodeBotPolicyFailed:
		return codes.Unavailable

	// NotFound
	case CodeNotFound,
		CodeSettlementParticipantMissing:
		return codes.NotFound

	case CodeBotNoLegalAction:
		return codes.ResourceExhausted
	}
	return codes.Unknown
}
