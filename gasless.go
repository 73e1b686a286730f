package claimlink

import "strings"

// LatestContractVersion resolves the newest claim contract version deployed
// on a chain. Pure table lookup.
func LatestContractVersion(chainID ChainID) string {
	if cfg, ok := ChainConfigs[chainID]; ok && cfg.ContractVersion != "" {
		return cfg.ContractVersion
	}
	return ContractVersionLatest
}

// GaslessDepositPossible decides whether a (chain, token) pair is eligible
// for a gas-sponsored deposit. The token must be on the chain's sponsorable
// allow-list (case-insensitive address match) AND the contract version must
// support the sponsorship mechanism. Pass contractVersion "" to resolve the
// chain's latest version.
func GaslessDepositPossible(chainID ChainID, tokenAddress, contractVersion string) bool {
	if contractVersion == "" {
		contractVersion = LatestContractVersion(chainID)
	}
	if !gaslessContractVersions[contractVersion] {
		return false
	}

	cfg, ok := ChainConfigs[chainID]
	if !ok {
		return false
	}
	needle := strings.ToLower(tokenAddress)
	for _, sponsored := range cfg.SponsoredTokens {
		if sponsored == needle {
			return true
		}
	}
	return false
}
