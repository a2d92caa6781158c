package reward

import (
	"strings"

	"github.com/doodlegames/doodle-rewards/internal/errors"
	"github.com/doodlegames/doodle-rewards/pkg/logger"
)

// LinkResult reports what LinkReferrer did.
type LinkResult int

const (
	LinkCreated LinkResult = iota
	LinkAlreadyExists
)

// LinkReferrer binds a referred wallet to the referrer identified by a
// short code. The first link for a wallet wins; repeat attempts succeed
// without writing.
//
// The referrer address is reconstructed by prefixing the code with "0x".
// No checksum or length validation is applied to the result; the code is
// trusted as supplied.
func (e *Engine) LinkReferrer(referralWallet, referrerCode string) (LinkResult, error) {
	if referralWallet == "" || referrerCode == "" {
		return 0, &errors.ValidationError{Field: "referralWallet", Message: "referralWallet and referrerCode are required"}
	}

	referrerWallet := "0x" + referrerCode

	if strings.EqualFold(referralWallet, referrerWallet) {
		return 0, &errors.ValidationError{Field: "referrerCode", Message: "self-referral is not allowed"}
	}

	created, err := e.store.LinkReferrer(strings.ToLower(referralWallet), strings.ToLower(referrerWallet))
	if err != nil {
		return 0, err
	}

	if !created {
		return LinkAlreadyExists, nil
	}

	logger.Info("Linked referrer %s to wallet %s", referrerWallet, referralWallet)
	return LinkCreated, nil
}
