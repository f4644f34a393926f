package models

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"time"

	"bitbucket.org/travelshield/portal_backend/config"
	"bitbucket.org/travelshield/portal_backend/utils"
)

// Cross-screen handoff. The original portal staged untyped JSON blobs in
// sessionStorage under fixed string keys; here the blobs are typed DTOs kept
// in redis under session-scoped, versioned keys and validated when read back.

const handoffSchemaVersion = 1

// Staging keys, one per flow step.
const (
	HandoffKeyProposalData       = "proposalData"
	HandoffKeyPolicyDetails      = "policyDetails"
	HandoffKeyPaymentData        = "paymentData"
	HandoffKeyPaymentSuccessData = "paymentSuccessData"
	HandoffKeyPaymentFailureData = "paymentFailureData"
)

type handoffEnvelope struct {
	Version  int             `json:"version"`
	StagedAt time.Time       `json:"staged_at"`
	Data     json.RawMessage `json:"data"`
}

func handoffLifespan() time.Duration {
	hours, err := strconv.Atoi(os.Getenv("HANDOFF_HOUR_LIFESPAN"))
	if err != nil {
		hours = 2
	}
	return time.Duration(hours) * time.Hour
}

func handoffRedisKey(token, key string) string {
	return "Handoff:" + token + ":" + key
}

// StageHandoff serializes the DTO under the session's staging key, replacing
// any previous blob (last write wins, as the SPA's storage did).
func StageHandoff[T any](ctx context.Context, key string, data T) error {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return errors.New("token is required")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	env := handoffEnvelope{
		Version:  handoffSchemaVersion,
		StagedAt: time.Now().UTC(),
		Data:     raw,
	}
	return config.SetRedisObject(handoffRedisKey(token, key), env, handoffLifespan())
}

// ReadHandoff loads and validates a staged DTO.
// Missing or stale-schema blobs return ErrorMissingHandoff; callers translate
// that into a silent dashboard redirect.
func ReadHandoff[T any](ctx context.Context, key string, dest *T) error {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return errors.New("token is required")
	}
	var env handoffEnvelope
	exists, err := config.GetRedisObject(handoffRedisKey(token, key), &env)
	if err != nil {
		return err
	}
	if !exists || env.Version != handoffSchemaVersion {
		return utils.ErrorMissingHandoff
	}
	return utils.UnmarshalFromJSON(env.Data, dest)
}

// ClearHandoff drops one staged blob (flow completed or abandoned).
func ClearHandoff(ctx context.Context, keys ...string) error {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return errors.New("token is required")
	}
	redisKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		redisKeys = append(redisKeys, handoffRedisKey(token, k))
	}
	return config.RemoveRedisKey(redisKeys...)
}
