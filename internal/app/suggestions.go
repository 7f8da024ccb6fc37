package app

import (
	"context"

	"clausewise/internal/model"
)

const maxSuggestedQuestions = 8

var baseQuestions = []string{
	"What are my main obligations under this contract?",
	"What happens if I want to terminate this agreement early?",
	"What fees or penalties might I be charged?",
	"What are the biggest risks I should be aware of?",
	"How can I protect myself when signing this?",
}

var documentTypeQuestions = map[model.DocumentType][]string{
	model.DocumentRentalAgreement: {
		"What happens if I miss a rent payment?",
		"Can my landlord increase the rent?",
		"What is my security deposit used for?",
		"Who is responsible for repairs and maintenance?",
		"How much notice do I need to give before moving out?",
	},
	model.DocumentLoanContract: {
		"What is my total cost of borrowing?",
		"What happens if I miss a payment?",
		"Can I pay off the loan early?",
		"What collateral am I putting at risk?",
		"What are the default consequences?",
	},
	model.DocumentEmploymentContract: {
		"What are my working hours and overtime rules?",
		"What benefits am I entitled to?",
		"Can I work for competitors after leaving?",
		"What intellectual property rights do I retain?",
		"How can my employment be terminated?",
	},
	model.DocumentTermsOfService: {
		"What data do you collect about me?",
		"Can you change these terms without notice?",
		"What happens if I violate the terms?",
		"How do I delete my account and data?",
		"What are my rights in disputes?",
	},
}

var clauseQuestions = map[model.ClauseType]string{
	"security_deposit":     "When and how will I get my security deposit back?",
	"non_compete":          "What jobs am I restricted from taking after this ends?",
	"data_sharing":         "Who else will have access to my personal information?",
	"limitation_liability": "What damages can I recover if something goes wrong?",
}

// SuggestQuestions picks starter questions for a document: clause specific
// ones first, then ones for the document type, then generic ones.
func SuggestQuestions(docType model.DocumentType, clauses []model.Clause) []string {
	var questions []string
	present := make(map[model.ClauseType]bool, len(clauses))
	for _, c := range clauses {
		present[c.ClauseType] = true
	}
	for _, info := range model.Taxonomy() {
		if q, ok := clauseQuestions[info.Type]; ok && present[info.Type] {
			questions = append(questions, q)
		}
	}
	questions = append(questions, documentTypeQuestions[docType]...)
	questions = append(questions, baseQuestions...)

	seen := make(map[string]bool, len(questions))
	out := make([]string, 0, maxSuggestedQuestions)
	for _, q := range questions {
		if seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
		if len(out) == maxSuggestedQuestions {
			break
		}
	}
	return out
}

// SuggestedQuestions is SuggestQuestions for a stored document. Before
// classification only generic questions are available.
func (s *QAService) SuggestedQuestions(ctx context.Context, documentID string) ([]string, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	var clauses []model.Clause
	if doc.LastCompletedStage().AtLeast(model.StageClassified) {
		clauses, err = s.store.ListClauses(ctx, documentID)
		if err != nil {
			return nil, err
		}
	}
	return SuggestQuestions(doc.DocumentType, clauses), nil
}
