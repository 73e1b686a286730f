package claimlink

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// LinkParams are the claim coordinates embedded in a shareable link. Together
// with the password they resolve to exactly one on-chain deposit.
type LinkParams struct {
	ChainID         ChainID
	ContractVersion string
	DepositIdx      uint64
	Password        string
}

// BuildLink assembles the shareable claim link. The format is stable so the
// claiming counterpart can parse it:
//
//	{base}?c={chainId}&v={contractVersion}&i={depositIdx}#p={password}
//
// The password travels in the URL fragment so it never reaches the server
// hosting the claim page.
func BuildLink(baseClaimURL string, params LinkParams) string {
	base := strings.TrimRight(baseClaimURL, "/")
	return fmt.Sprintf("%s?c=%s&v=%s&i=%d#p=%s",
		base, params.ChainID, params.ContractVersion, params.DepositIdx, url.QueryEscape(params.Password))
}

// ParseLink is the inverse of BuildLink.
func ParseLink(link string) (*LinkParams, error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, WrapFlowError(ErrCodeInvalidLink, "malformed claim link", err)
	}

	q := u.Query()
	chainID := q.Get("c")
	version := q.Get("v")
	idxRaw := q.Get("i")
	if chainID == "" || version == "" || idxRaw == "" {
		return nil, NewFlowError(ErrCodeInvalidLink, "claim link missing chain, version or deposit index", nil)
	}

	idx, err := strconv.ParseUint(idxRaw, 10, 64)
	if err != nil {
		return nil, WrapFlowError(ErrCodeInvalidLink, "claim link deposit index is not a number", err)
	}

	password := ""
	if frag := u.Fragment; strings.HasPrefix(frag, "p=") {
		if password, err = url.QueryUnescape(strings.TrimPrefix(frag, "p=")); err != nil {
			return nil, WrapFlowError(ErrCodeInvalidLink, "claim link password is not decodable", err)
		}
	}

	return &LinkParams{
		ChainID:         ChainID(chainID),
		ContractVersion: version,
		DepositIdx:      idx,
		Password:        password,
	}, nil
}
