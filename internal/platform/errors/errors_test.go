package errors

import (
	stderrors "errors"
	"testing"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestGRPCCode_MapsDomainCodes(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodeSessionInvalidMode, codes.InvalidArgument},
		{CodeSessionInvalidBoardSize, codes.InvalidArgument},
		{CodeMoveOutOfBounds, codes.InvalidArgument},
		{CodeMoveOccupied, codes.InvalidArgument},
		{CodeMoveSuicide, codes.InvalidArgument},
		{CodeMoveKoViolation, codes.InvalidArgument},
		{CodeMoveInvalidPayload, codes.InvalidArgument},
		{CodeSeedOutOfRange, codes.InvalidArgument},
		{CodeSessionSeatUnbound, codes.FailedPrecondition},
		{CodeSessionInvalidPhaseTransition, codes.FailedPrecondition},
		{CodeSessionPhaseDisallowsOp, codes.FailedPrecondition},
		{CodeMoveWrongSeat, codes.FailedPrecondition},
		{CodeScoringNotTerminal, codes.FailedPrecondition},
		{CodeScoringAlreadyAttached, codes.FailedPrecondition},
		{CodeSettlementAlreadySettled, codes.FailedPrecondition},
		{CodeBotSeatNotBot, codes.FailedPrecondition},
		{CodeSessionProcessingBusy, codes.Aborted},
		{CodeSessionHistoryCorrupt, codes.DataLoss},
		{CodeScoringAnalyzerFailed, codes.Unavailable},
		{CodeBotPolicyFailed, codes.Unavailable},
		{CodeNotFound, codes.NotFound},
		{CodeSettlementParticipantMissing, codes.NotFound},
		{CodeBotNoLegalAction, codes.ResourceExhausted},
		{CodeUnknown, codes.Unknown},
		{Code("SOMETHING_NEW"), codes.Unknown},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.GRPCCode(); got != tt.want {
				t.Fatalf("GRPCCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToGRPCStatus_CarriesDetails(t *testing.T) {
	err := WithMetadata(CodeMoveOccupied, "point d4 is occupied", map[string]string{
		"x": "3",
		"y": "3",
	})

	st, ok := status.FromError(err.ToGRPCStatus("pt-BR", "Esse ponto ja esta ocupado"))
	if !ok {
		t.Fatal("ToGRPCStatus did not produce a gRPC status")
	}
	if st.Code() != codes.InvalidArgument {
		t.Fatalf("status code = %v, want %v", st.Code(), codes.InvalidArgument)
	}
	if st.Message() != "point d4 is occupied" {
		t.Fatalf("status message = %q, want %q", st.Message(), "point d4 is occupied")
	}

	var info *errdetails.ErrorInfo
	var localized *errdetails.LocalizedMessage
	for _, d := range st.Details() {
		switch v := d.(type) {
		case *errdetails.ErrorInfo:
			info = v
		case *errdetails.LocalizedMessage:
			localized = v
		}
	}
	if info == nil {
		t.Fatal("status is missing ErrorInfo detail")
	}
	if info.Reason != string(CodeMoveOccupied) {
		t.Fatalf("ErrorInfo.Reason = %q, want %q", info.Reason, CodeMoveOccupied)
	}
	if info.Domain != Domain {
		t.Fatalf("ErrorInfo.Domain = %q, want %q", info.Domain, Domain)
	}
	if info.Metadata["x"] != "3" || info.Metadata["y"] != "3" {
		t.Fatalf("ErrorInfo.Metadata = %v, want coordinates", info.Metadata)
	}
	if localized == nil {
		t.Fatal("status is missing LocalizedMessage detail")
	}
	if localized.Locale != "pt-BR" {
		t.Fatalf("LocalizedMessage.Locale = %q, want %q", localized.Locale, "pt-BR")
	}
	if localized.Message != "Esse ponto ja esta ocupado" {
		t.Fatalf("LocalizedMessage.Message = %q, want user-facing text", localized.Message)
	}
}

func TestWrap_PreservesChainAndCodeMatching(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodeScoringAnalyzerFailed, "analyzer pass failed", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("wrapped error does not unwrap to its cause")
	}
	if !stderrors.Is(err, New(CodeScoringAnalyzerFailed, "other message")) {
		t.Fatal("errors with the same code should match")
	}
	if stderrors.Is(err, New(CodeBotPolicyFailed, "analyzer pass failed")) {
		t.Fatal("errors with different codes should not match")
	}
	if err.Error() != "analyzer pass failed" {
		t.Fatalf("Error() = %q, want the internal message", err.Error())
	}
}
