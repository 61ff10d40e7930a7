package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// enrichAntispam hashes the requester's network origin and client signature
// and records the external CAPTCHA verdict. Verification transport failures
// propagate; a submission is never silently accepted past a broken verifier.
func (s *Service) enrichAntispam(ctx context.Context, req SubmitRequest) (AntispamRecord, error) {
	if s.captchaVerifier == nil {
		return AntispamRecord{}, ConfigurationError("core: anti-spam is enabled but no captcha verifier is configured")
	}
	pass, err := s.captchaVerifier.Verify(ctx, req.CaptchaToken)
	if err != nil {
		return AntispamRecord{}, InternalError(err, "core: captcha verification failed")
	}
	return AntispamRecord{
		IPHash:        originHash(req.RemoteIP),
		UserAgentHash: originHash(req.UserAgent),
		CaptchaPass:   pass,
	}, nil
}

// originHash produces a stable fixed-length digest. The exact algorithm is
// not a compatibility surface; stability across calls is.
func originHash(value string) string {
	digest := sha256.Sum256([]byte(value))
	return hex.EncodeToString(digest[:])
}
