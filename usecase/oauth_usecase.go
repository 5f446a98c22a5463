package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/clients/platform"
	"social-publisher/infrastructure/logger"
)

// Steps of the callback reported on failure.
const (
	StepAuthorize = "authorize"
	StepState     = "state"
	StepExchange  = "exchange"
	StepUserInfo  = "user_info"
	StepStore     = "store"
)

type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

type LinkResult struct {
	State      model.LinkState   `json:"state"`
	Platform   model.Platform    `json:"platform"`
	Credential *model.Credential `json:"account"`
}

// LinkError is returned by HandleCallback. State is where the attempt ended and
// Step is the operation that failed.
type LinkError struct {
	State model.LinkState
	Step  string
	Err   error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link %s at %s: %v", e.State, e.Step, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

type IOAuthUsecase interface {
	StartLink(ctx context.Context, userID string, p model.Platform) (dto.AuthURLResponse, error)
	HandleCallback(ctx context.Context, p model.Platform, params CallbackParams) (*LinkResult, error)
}

type oauthUsecase struct {
	registry        *platform.Registry
	states          repository.IStateStore
	credentials     repository.ICredential
	stateTTL        time.Duration
	exchangeTimeout time.Duration
	now             func() time.Time
}

func NewOAuthUsecase(registry *platform.Registry, states repository.IStateStore, credentials repository.ICredential, stateTTL, exchangeTimeout time.Duration) IOAuthUsecase {
	return &oauthUsecase{
		registry:        registry,
		states:          states,
		credentials:     credentials,
		stateTTL:        stateTTL,
		exchangeTimeout: exchangeTimeout,
		now:             time.Now,
	}
}

func (u *oauthUsecase) StartLink(ctx context.Context, userID string, p model.Platform) (dto.AuthURLResponse, error) {
	adapter, err := u.registry.Get(p)
	if err != nil {
		return dto.AuthURLResponse{}, err
	}
	if !adapter.Configured() {
		return dto.AuthURLResponse{}, model.NewError(model.ErrNotSupported, p, "start_link", "oauth client not configured")
	}

	state := model.NewOAuthState(userID, p, u.stateTTL, u.now().UTC())
	token := state.Token()
	if err := u.states.Save(ctx, token, state, u.stateTTL); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while saving oauth state")
		return dto.AuthURLResponse{}, err
	}
	return dto.AuthURLResponse{
		Platform:  p,
		AuthURL:   adapter.AuthURL(token),
		State:     token,
		Scopes:    adapter.Capabilities().Scopes,
		ExpiresAt: state.ExpiresAt,
	}, nil
}

// HandleCallback completes a link. Nothing is written unless exchange, user
// info and store all succeed.
func (u *oauthUsecase) HandleCallback(ctx context.Context, p model.Platform, params CallbackParams) (*LinkResult, error) {
	lg := logger.GetLogger().WithField("platform", p)

	if params.Error != "" {
		if params.State != "" {
			_, _ = u.states.Consume(ctx, params.State)
		}
		msg := params.Error
		if params.ErrorDescription != "" {
			msg += ": " + params.ErrorDescription
		}
		lg.WithField("reason", msg).Info("Authorization denied by user")
		return nil, &LinkError{State: model.LinkStateDenied, Step: StepAuthorize, Err: model.NewError(model.ErrDenied, p, "callback", msg)}
	}

	state, err := u.consumeState(ctx, p, params.State)
	if err != nil {
		lg.WithField("error", err).Warn("Rejected oauth callback state")
		return nil, err
	}

	adapter, err := u.registry.Get(p)
	if err != nil {
		return nil, &LinkError{State: model.LinkStateAwaitingCallback, Step: StepExchange, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, u.exchangeTimeout)
	defer cancel()

	tokens, err := adapter.ExchangeCode(ctx, params.Code)
	if err != nil {
		lg.WithField("error", err).Error("Error while exchanging authorization code")
		return nil, &LinkError{State: model.LinkStateAwaitingCallback, Step: StepExchange, Err: err}
	}
	identity, err := adapter.UserInfo(ctx, tokens.AccessToken)
	if err != nil {
		lg.WithField("error", err).Error("Error while fetching account info")
		return nil, &LinkError{State: model.LinkStateExchanged, Step: StepUserInfo, Err: err}
	}

	cred := model.NewCredential(state.UserID, p, tokens, identity, u.now().UTC())
	stored, err := u.credentials.Upsert(ctx, cred)
	if err != nil {
		lg.WithField("error", err).Error("Error while storing credential")
		return nil, &LinkError{State: model.LinkStateExchanged, Step: StepStore, Err: err}
	}

	lg.WithField("credential_id", stored.ID).WithField("username", stored.Username).Info("Account linked")
	return &LinkResult{State: model.LinkStateLinked, Platform: p, Credential: stored}, nil
}

func (u *oauthUsecase) consumeState(ctx context.Context, p model.Platform, token string) (model.OAuthState, error) {
	invalid := func(err error) error {
		return &LinkError{State: model.LinkStateInvalidState, Step: StepState, Err: err}
	}

	parsed, err := model.ParseOAuthState(token)
	if err != nil {
		return model.OAuthState{}, invalid(err)
	}
	if parsed.Platform != p {
		return model.OAuthState{}, invalid(model.NewError(model.ErrInvalidState, p, "callback", "state issued for "+string(parsed.Platform)))
	}

	stored, err := u.states.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, model.ErrInvalidState) {
			return model.OAuthState{}, invalid(err)
		}
		return model.OAuthState{}, &LinkError{State: model.LinkStateAwaitingCallback, Step: StepState, Err: err}
	}
	if !stored.Matches(parsed) {
		return model.OAuthState{}, invalid(model.NewError(model.ErrInvalidState, p, "callback", "state does not match"))
	}
	if stored.Expired(u.now()) {
		return model.OAuthState{}, &LinkError{
			State: model.LinkStateExpired,
			Step:  StepState,
			Err:   model.NewError(model.ErrStateExpired, p, "callback", "state expired"),
		}
	}
	return stored, nil
}
