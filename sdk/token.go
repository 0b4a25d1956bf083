package vox

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vango-go/vox-console/pkg/core"
)

const tokenPath = "/api/token/mre-incoming"

// TokenService issues short-lived call credentials.
type TokenService struct {
	client *Client
}

// CredentialRequest carries the parameters for a credential issuance.
type CredentialRequest struct {
	Room         string `json:"room"`
	User         string `json:"user"`
	Prompt       string `json:"prompt"`
	Instructions string `json:"instructions"`
}

// Credential is an issued call credential. DocumentID is populated when the
// backend returns it explicitly; older backends only embed it in the token
// payload, which ResolveDocumentID falls back to.
type Credential struct {
	Token      string `json:"token"`
	DocumentID string `json:"document_id,omitempty"`
}

// Issue requests a credential for a new call. All failures are connect
// errors: a call cannot be established without a credential.
func (s *TokenService) Issue(ctx context.Context, req *CredentialRequest) (*Credential, error) {
	if req == nil {
		return nil, core.NewInvalidRequestError("req must not be nil")
	}
	var cred Credential
	if err := s.client.doJSON(ctx, http.MethodPost, tokenPath, req, &cred); err != nil {
		return nil, core.NewConnectError("credential request failed", err)
	}
	if strings.TrimSpace(cred.Token) == "" {
		return nil, core.NewConnectError("credential response contained no token", nil)
	}
	return &cred, nil
}

// ResolveDocumentID returns the transcript document id for this credential.
// The explicit response field wins; otherwise the token's payload segment is
// decoded without signature verification. Decode failure is non-fatal and
// returns "" (transcript retrieval is simply unavailable for the call).
func (c *Credential) ResolveDocumentID() string {
	if id := strings.TrimSpace(c.DocumentID); id != "" {
		return id
	}
	return documentIDFromToken(c.Token)
}

func documentIDFromToken(token string) string {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return ""
	}
	id, _ := claims["document_id"].(string)
	return strings.TrimSpace(id)
}
