package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tool_lending_admin/app"
	"tool_lending_admin/db"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

// ===== 添加 Passkey（已登录） =====

func (s *Srv) BeginAddCredential(c *gin.Context) {
	p, ok := app.CurrentPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	wUser, err := s.loadWAUserByID(ctx, p.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	// 已有的凭据不再重复注册
	exclude := make([]protocol.CredentialDescriptor, 0, len(wUser.creds))
	for _, cr := range wUser.creds {
		exclude = append(exclude, cr.Descriptor())
	}
	opts, sd, err := s.WA.BeginRegistration(
		wUser,
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired),
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			UserVerification: protocol.VerificationRequired,
		}),
		webauthn.WithExclusions(exclude),
	)
	if err != nil {
		fail(c, err)
		return
	}

	if err := s.Sess.SaveReg(ctx, p.UserID, sd); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"opts": opts})
}

func (s *Srv) FinishAddCredential(c *gin.Context) {
	p, ok := app.CurrentPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	wUser, err := s.loadWAUserByID(ctx, p.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	sd, err := s.Sess.LoadReg(ctx, p.UserID)
	if err != nil {
		badRequest(c, "session expired or invalid")
		return
	}

	cred, err := s.WA.FinishRegistration(wUser, *sd, c.Request)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := s.Repo.AddCredential(ctx, fromWaCred(p.UserID, cred)); err != nil {
		fail(c, err)
		return
	}
	s.Sess.DelReg(ctx, p.UserID)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// ===== Passkey 登录 =====

type loginBeginReq struct {
	CIN          string `json:"cin"`
	Discoverable bool   `json:"discoverable"`
}
type loginBeginResp struct {
	Options   *protocol.CredentialAssertion `json:"options"`
	SessionID string                        `json:"sessionId"`
}

// passkeyUserByCIN 账号不存在或没有 Passkey 都按凭据无效处理，与密码登录一致
func (s *Srv) passkeyUserByCIN(ctx context.Context, cin string) (*waUser, error) {
	u, err := s.loadWAUserByCIN(ctx, cin)
	if errors.Is(err, db.ErrNotFound) {
		return nil, db.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if len(u.creds) == 0 {
		return nil, db.ErrInvalidCredentials
	}
	return u, nil
}

func (s *Srv) BeginLogin(c *gin.Context) {
	var req loginBeginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad request")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	var (
		opts *protocol.CredentialAssertion
		sd   *webauthn.SessionData
		err  error
	)
	if req.Discoverable || req.CIN == "" {
		opts, sd, err = s.WA.BeginDiscoverableLogin(webauthn.WithUserVerification(protocol.VerificationRequired))
	} else {
		wUser, err2 := s.passkeyUserByCIN(ctx, req.CIN)
		if err2 != nil {
			fail(c, err2)
			return
		}
		opts, sd, err = s.WA.BeginLogin(wUser, webauthn.WithUserVerification(protocol.VerificationRequired))
	}
	if err != nil {
		fail(c, err)
		return
	}

	sid := uuid.NewString()
	if err := s.Sess.SaveAuth(ctx, sid, sd); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loginBeginResp{Options: opts, SessionID: sid})
}

func (s *Srv) FinishLogin(c *gin.Context) {
	sid := c.Query("sessionId")
	if sid == "" {
		badRequest(c, "missing sessionId")
		return
	}
	ip, ua := c.ClientIP(), c.Request.UserAgent()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	sd, err := s.Sess.LoadAuth(ctx, sid)
	if err != nil {
		badRequest(c, "session expired or invalid")
		return
	}

	var (
		wUser *waUser
		cred  *webauthn.Credential
	)
	if cin := c.Query("cin"); cin != "" {
		if wUser, err = s.passkeyUserByCIN(ctx, cin); err != nil {
			fail(c, err)
			return
		}
		cred, err = s.WA.FinishLogin(wUser, *sd, c.Request)
	} else {
		handler := func(rawID, _ []byte) (webauthn.User, error) {
			u, _, err := s.Repo.FindUserByCredentialID(ctx, rawID)
			if err != nil {
				return nil, protocol.ErrBadRequest.WithDetails("credential not found")
			}
			return s.waUserFor(ctx, u)
		}
		var user webauthn.User
		user, cred, err = s.WA.FinishPasskeyLogin(handler, *sd, c.Request)
		if err == nil {
			wUser = user.(*waUser)
		}
	}
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			fail(c, err)
			return
		}
		c.JSON(http.StatusUnauthorized, app.H{"error": err.Error(), "code": "invalid_credentials"})
		return
	}
	_ = s.Repo.UpdateCredentialCounter(ctx, cred.ID, cred.Authenticator.SignCount, cred.Authenticator.CloneWarning)
	_ = s.Repo.TouchCredentialUsed(ctx, cred.ID)
	s.Sess.DelAuth(ctx, sid)

	if err := s.issueSession(ctx, c.Writer, &wUser.user, ip, ua); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "user": wUser.user})
}
