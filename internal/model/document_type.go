package model

import "strings"

type DocumentType string

const (
	DocumentRentalAgreement    DocumentType = "rental_agreement"
	DocumentLoanContract       DocumentType = "loan_contract"
	DocumentEmploymentContract DocumentType = "employment_contract"
	DocumentTermsOfService     DocumentType = "terms_of_service"
	DocumentPrivacyPolicy      DocumentType = "privacy_policy"
	DocumentNDA                DocumentType = "nda"
	DocumentOther              DocumentType = "other"
)

var documentTypes = []DocumentType{
	DocumentRentalAgreement,
	DocumentLoanContract,
	DocumentEmploymentContract,
	DocumentTermsOfService,
	DocumentPrivacyPolicy,
	DocumentNDA,
	DocumentOther,
}

func DocumentTypes() []DocumentType {
	out := make([]DocumentType, len(documentTypes))
	copy(out, documentTypes)
	return out
}

// NormalizeDocumentType maps unknown labels to other.
func NormalizeDocumentType(raw string) DocumentType {
	t := DocumentType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range documentTypes {
		if t == known {
			return t
		}
	}
	return DocumentOther
}

func (t DocumentType) Label() string {
	return strings.ReplaceAll(string(t), "_", " ")
}
