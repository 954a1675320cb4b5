package models

// Certificate is the ledger-authoritative core of a certificate. It is created
// by a mint and only ever changes through revocation, which is one-way.
type Certificate struct {
	ID         CertificateID
	Pointer    ContentPointer
	HolderName string
	IssuerName string
	IssueDate  string
	Revoked    bool
}

// MintRequest carries the core fields written to the ledger for one certificate.
type MintRequest struct {
	Pointer    ContentPointer
	HolderName string
	IssuerName string
	IssueDate  string
}

// IDRange is a contiguous block of identifiers assigned by a batch mint.
// Item i of the batch received First+i.
type IDRange struct {
	First CertificateID
	Count int
}

// At returns the identifier assigned to the i-th item of the batch.
func (r IDRange) At(i int) CertificateID {
	return r.First + CertificateID(i)
}

// IDs expands the range in batch order.
func (r IDRange) IDs() []CertificateID {
	ids := make([]CertificateID, r.Count)
	for i := range ids {
		ids[i] = r.At(i)
	}
	return ids
}
