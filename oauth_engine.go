package authcore

import "context"

// StartOAuth begins a federated login with the named provider. It
// issues a single-use state token and returns the provider's
// authorization URL for the caller to redirect to. returnURL, if
// non-empty, is carried through the flow and handed back by
// CompleteOAuth.
func (e *Engine) StartOAuth(ctx context.Context, provider, returnURL string) (string, error) {
	if e == nil || e.states == nil {
		return "", ErrEngineNotReady
	}

	p, ok := e.providers[provider]
	if !ok {
		return "", ErrUnsupportedProvider
	}

	state, err := e.states.Issue(ctx, provider, returnURL)
	if err != nil {
		return "", err
	}

	e.metricInc(MetricOAuthStarted)
	e.emitAudit(ctx, auditEventOAuthStart, true, "", "", provider, nil, nil)
	return p.AuthorizationURL(state), nil
}

// CompleteOAuth finishes a federated login: it consumes the state
// token, exchanges the authorization code, fetches the external
// profile, reconciles it to a local account, and issues the same token
// pair a password login would. The second return value is the return
// URL captured at StartOAuth, empty if none was given.
//
// State problems fail with ErrInvalidState; provider-side failures
// (exchange, profile fetch) fail with ErrProviderUnavailable. Both
// leave the flow restartable.
func (e *Engine) CompleteOAuth(ctx context.Context, provider, code, state string) (TokenPair, string, error) {
	if e == nil || e.states == nil {
		return TokenPair{}, "", ErrEngineNotReady
	}

	p, ok := e.providers[provider]
	if !ok {
		return TokenPair{}, "", ErrUnsupportedProvider
	}

	record, err := e.states.Consume(ctx, state, provider)
	if err != nil {
		e.metricInc(MetricStateRejected)
		e.logger.Debug("oauth state rejected", "provider", provider)
		e.emitAudit(ctx, auditEventOAuthStateRejected, false, "", "", provider, err, nil)
		return TokenPair{}, "", err
	}

	providerToken, err := p.Exchange(ctx, code)
	if err != nil {
		return TokenPair{}, "", e.oauthFailure(ctx, provider, "code_exchange", err)
	}

	profile, err := p.FetchProfile(ctx, providerToken)
	if err != nil {
		return TokenPair{}, "", e.oauthFailure(ctx, provider, "profile_fetch", err)
	}

	user, created, err := e.reconciler.Reconcile(ctx, profile, provider)
	if err != nil {
		return TokenPair{}, "", e.oauthFailure(ctx, provider, "reconcile", err)
	}
	if !user.Active {
		return TokenPair{}, "", e.oauthFailure(ctx, provider, "account_inactive", ErrInvalidCredentials)
	}
	if created {
		e.metricInc(MetricUserCreated)
		e.emitAudit(ctx, auditEventAccountCreated, true, user.ID, user.Username, provider, nil, nil)
	} else {
		e.metricInc(MetricUserLinked)
		e.emitAudit(ctx, auditEventAccountLinked, true, user.ID, user.Username, provider, nil, nil)
	}

	user.LastLogin = e.clock.Now()
	if err := e.users.Update(ctx, user); err != nil {
		e.logger.Warn("last login update failed", "user_id", user.ID, "error", err)
	}

	pair, err := e.issuePair(user)
	if err != nil {
		return TokenPair{}, "", e.oauthFailure(ctx, provider, "token_issue", err)
	}

	e.metricInc(MetricOAuthSuccess)
	e.emitAudit(ctx, auditEventOAuthSuccess, true, user.ID, user.Username, provider, nil, nil)
	return pair, record.ReturnURL, nil
}

// oauthFailure records a failed completion and collapses provider-side
// errors to ErrProviderUnavailable.
func (e *Engine) oauthFailure(ctx context.Context, provider, reason string, err error) error {
	e.metricInc(MetricOAuthFailure)

	out := err
	switch reason {
	case "code_exchange", "profile_fetch":
		out = ErrProviderUnavailable
	}

	e.emitAudit(ctx, auditEventOAuthFailure, false, "", "", provider, out, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return out
}
