package models

// ExtractedIntel holds the artifacts pulled out of scammer messages.
// Every field behaves as an ordered set: values are unique and keep the order
// in which they were first seen.
type ExtractedIntel struct {
	UPIIDs        []string `json:"upi_ids"`
	BankAccounts  []string `json:"bank_accounts"`
	PhoneNumbers  []string `json:"phone_numbers"`
	URLs          []string `json:"urls"`
	CryptoWallets []string `json:"crypto_wallets"`
	Emails        []string `json:"emails"`
	IPAddresses   []string `json:"ip_addresses"`
}

// IsEmpty reports whether no artifact of any category is present
func (i ExtractedIntel) IsEmpty() bool {
	return len(i.UPIIDs) == 0 &&
		len(i.BankAccounts) == 0 &&
		len(i.PhoneNumbers) == 0 &&
		len(i.URLs) == 0 &&
		len(i.CryptoWallets) == 0 &&
		len(i.Emails) == 0 &&
		len(i.IPAddresses) == 0
}

// Count returns the total number of artifacts across all categories
func (i ExtractedIntel) Count() int {
	return len(i.UPIIDs) + len(i.BankAccounts) + len(i.PhoneNumbers) + len(i.URLs) +
		len(i.CryptoWallets) + len(i.Emails) + len(i.IPAddresses)
}

// Merge unions other into i, category by category. It returns true when at
// least one new value was added; merging the same intel twice is a no-op.
func (i *ExtractedIntel) Merge(other ExtractedIntel) bool {
	var changed bool
	i.UPIIDs, changed = unionInto(i.UPIIDs, other.UPIIDs, changed)
	i.BankAccounts, changed = unionInto(i.BankAccounts, other.BankAccounts, changed)
	i.PhoneNumbers, changed = unionInto(i.PhoneNumbers, other.PhoneNumbers, changed)
	i.URLs, changed = unionInto(i.URLs, other.URLs, changed)
	i.CryptoWallets, changed = unionInto(i.CryptoWallets, other.CryptoWallets, changed)
	i.Emails, changed = unionInto(i.Emails, other.Emails, changed)
	i.IPAddresses, changed = unionInto(i.IPAddresses, other.IPAddresses, changed)
	return changed
}

// Clone returns a deep copy
func (i ExtractedIntel) Clone() ExtractedIntel {
	return ExtractedIntel{
		UPIIDs:        cloneStrings(i.UPIIDs),
		BankAccounts:  cloneStrings(i.BankAccounts),
		PhoneNumbers:  cloneStrings(i.PhoneNumbers),
		URLs:          cloneStrings(i.URLs),
		CryptoWallets: cloneStrings(i.CryptoWallets),
		Emails:        cloneStrings(i.Emails),
		IPAddresses:   cloneStrings(i.IPAddresses),
	}
}

// UnionStrings appends the values of additions missing from target, keeping
// first-seen order. It reports whether anything was appended.
func UnionStrings(target, additions []string) ([]string, bool) {
	return unionInto(target, additions, false)
}

func unionInto(target, additions []string, changed bool) ([]string, bool) {
	if len(additions) == 0 {
		return target, changed
	}
	seen := make(map[string]struct{}, len(target)+len(additions))
	for _, v := range target {
		seen[v] = struct{}{}
	}
	for _, v := range additions {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		target = append(target, v)
		changed = true
	}
	return target, changed
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
