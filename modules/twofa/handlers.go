package twofa

import (
	"net/http"

	"github.com/rafiki-assist/rafiki/handler"
)

// FlowRequest addresses a setup flow.
type FlowRequest struct {
	FlowID string `path:"flowID" json:"-"`
}

// SetupCodeRequest submits the first code from the authenticator app.
type SetupCodeRequest struct {
	FlowID string `path:"flowID" json:"-"`
	Code   string `json:"code"`
}

// CompleteSetupRequest finishes setup. SkipBackup records that the user
// chose not to save the backup codes.
type CompleteSetupRequest struct {
	FlowID     string `path:"flowID" json:"-"`
	SkipBackup bool   `json:"skip_backup"`
}

// CodeRequest carries a current TOTP code.
type CodeRequest struct {
	Code string `json:"code"`
}

// ChallengeRequest answers a login challenge with a TOTP code or a backup
// code. A backup code takes precedence when both are set.
type ChallengeRequest struct {
	ChallengeID string `path:"challengeID" json:"-"`
	Code        string `json:"code,omitempty"`
	BackupCode  string `json:"backup_code,omitempty"`
}

// BackupCodesResponse returns a freshly issued backup code set. The codes
// are never retrievable again.
type BackupCodesResponse struct {
	State       string   `json:"state,omitempty"`
	BackupCodes []string `json:"backup_codes"`
}

func (m *Module) status(ctx handler.Context, _ struct{}) handler.Response {
	st, err := m.accounts.Status(ctx, ctx.User())
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(st)
}

func (m *Module) disable(ctx handler.Context, _ struct{}) handler.Response {
	if err := m.accounts.DisableTwoFactor(ctx, ctx.User()); err != nil {
		return handler.Error(err)
	}
	return handler.Empty()
}

func (m *Module) regenerateBackupCodes(ctx handler.Context, req CodeRequest) handler.Response {
	codes, err := m.accounts.RegenerateBackupCodes(ctx, ctx.User(), req.Code)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(BackupCodesResponse{BackupCodes: codes})
}

func (m *Module) startSetup(ctx handler.Context, _ struct{}) handler.Response {
	view, err := m.flows.StartSetup(ctx, ctx.User())
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(view, handler.WithJSONStatus(http.StatusCreated))
}

func (m *Module) openCodeEntry(ctx handler.Context, req FlowRequest) handler.Response {
	view, err := m.flows.OpenCodeEntry(ctx, ctx.User(), req.FlowID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(view)
}

func (m *Module) verifySetup(ctx handler.Context, req SetupCodeRequest) handler.Response {
	codes, err := m.flows.SubmitSetupCode(ctx, ctx.User(), req.FlowID, req.Code)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(BackupCodesResponse{State: "backup", BackupCodes: codes})
}

func (m *Module) completeSetup(ctx handler.Context, req CompleteSetupRequest) handler.Response {
	view, err := m.flows.CompleteSetup(ctx, ctx.User(), req.FlowID, req.SkipBackup)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(view)
}

func (m *Module) restartSetup(ctx handler.Context, req FlowRequest) handler.Response {
	view, err := m.flows.RestartSetup(ctx, ctx.User(), req.FlowID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(view)
}

func (m *Module) startChallenge(ctx handler.Context, _ struct{}) handler.Response {
	ch, err := m.flows.StartChallenge(ctx, ctx.User())
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(ch)
}

func (m *Module) verifyChallenge(ctx handler.Context, req ChallengeRequest) handler.Response {
	res, err := m.flows.VerifyChallenge(ctx, ctx.User(), req.ChallengeID, req.Code, req.BackupCode)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(res)
}
