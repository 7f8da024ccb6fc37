package model

// ClauseType is a label from the fixed clause taxonomy.
type ClauseType string

const ClauseOther ClauseType = "other"

// ClauseTypeInfo describes one taxonomy entry. HighRisk and LowRisk are the
// red-flag rules handed to the generation engine when the clause is assessed.
type ClauseTypeInfo struct {
	Type       ClauseType
	Label      string
	Definition string
	HighRisk   []string
	LowRisk    []string
}

// Taxonomy order doubles as the tie-break order when two labels share the top confidence.
var taxonomy = []ClauseTypeInfo{
	{Type: "parties_involved", Label: "Parties Involved", Definition: "Identifies the parties bound by the agreement and their roles."},
	{Type: "definitions", Label: "Definitions", Definition: "Defines capitalized or technical terms used elsewhere in the document."},
	{Type: "purpose_scope", Label: "Purpose and Scope", Definition: "States what the agreement covers, the goods, services or property involved."},
	{
		Type: "payment_terms", Label: "Payment Terms", Definition: "Amounts owed, due dates and accepted payment methods.",
		HighRisk: []string{"amount or due date can be changed unilaterally by the other party", "payment required far in advance with no refund"},
		LowRisk:  []string{"fixed amounts with clear due dates and grace period"},
	},
	{
		Type: "fees_charges", Label: "Fees and Charges", Definition: "Additional fees beyond the base price, such as service, processing or administrative fees.",
		HighRisk: []string{"open-ended fees at the other party's discretion", "fees not disclosed as fixed amounts"},
		LowRisk:  []string{"all fees listed with fixed amounts"},
	},
	{
		Type: "penalties", Label: "Penalties", Definition: "Sanctions or liquidated damages for breach or late performance.",
		HighRisk: []string{"penalty grossly exceeds any plausible loss", "penalty applies to trivial or technical breaches"},
		LowRisk:  []string{"penalty capped and proportionate to actual loss"},
	},
	{
		Type: "interest", Label: "Interest", Definition: "Interest rates, compounding and how rates may change.",
		HighRisk: []string{"variable rate with no cap", "default interest far above the base rate"},
		LowRisk:  []string{"fixed rate disclosed as an annual percentage"},
	},
	{
		Type: "security_deposit", Label: "Security Deposit", Definition: "Money held as security, permitted deductions and return conditions.",
		HighRisk: []string{"full forfeiture of the deposit for any breach (disproportionate forfeiture)", "no deadline for returning the deposit", "deductions for normal wear and tear"},
		LowRisk:  []string{"deductions capped at documented actual damages", "return within a fixed number of days with an itemized statement"},
	},
	{
		Type: "refund_policy", Label: "Refund Policy", Definition: "When and how money is returned to the customer.",
		HighRisk: []string{"no refunds under any circumstances", "refunds only as credit at the other party's discretion"},
		LowRisk:  []string{"pro-rata refund on cancellation"},
	},
	{Type: "contract_duration", Label: "Contract Duration", Definition: "Start date, end date and length of the agreement."},
	{
		Type: "termination", Label: "Termination", Definition: "How and when either party may end the agreement.",
		HighRisk: []string{"only the other party may terminate, without cause or notice", "termination triggers forfeiture of prepaid amounts"},
		LowRisk:  []string{"mutual termination rights with reasonable notice"},
	},
	{
		Type: "auto_renewal", Label: "Automatic Renewal", Definition: "Automatic extension of the term unless cancelled.",
		HighRisk: []string{"renews for a long term with a narrow cancellation window", "price may rise on renewal without notice"},
		LowRisk:  []string{"reminder sent before renewal and cancellation allowed any time"},
	},
	{
		Type: "exit_fees", Label: "Exit Fees", Definition: "Charges for leaving the agreement early.",
		HighRisk: []string{"exit fee equals all remaining payments"},
		LowRisk:  []string{"small fixed fee or none"},
	},
	{Type: "warranties", Label: "Warranties", Definition: "Promises about quality, condition or performance, and disclaimers of them."},
	{Type: "obligations", Label: "Obligations", Definition: "Duties each party must perform."},
	{
		Type: "limitation_liability", Label: "Limitation of Liability", Definition: "Caps or exclusions of a party's liability for damages.",
		HighRisk: []string{"excludes liability for gross negligence or willful misconduct", "caps liability at a trivial amount"},
		LowRisk:  []string{"mutual cap tied to fees paid, with carve-outs for negligence"},
	},
	{
		Type: "indemnification", Label: "Indemnification", Definition: "One party covering the other's losses, claims or legal costs.",
		HighRisk: []string{"one-sided, unlimited indemnity including the other party's own negligence"},
		LowRisk:  []string{"mutual indemnity limited to each party's own fault"},
	},
	{Type: "governing_law", Label: "Governing Law", Definition: "Which jurisdiction's law applies."},
	{
		Type: "dispute_resolution", Label: "Dispute Resolution", Definition: "How disputes are resolved: negotiation, mediation, courts.",
		HighRisk: []string{"disputes only in a distant forum chosen by the other party"},
	},
	{
		Type: "data_ownership", Label: "Data Ownership", Definition: "Who owns data created or supplied under the agreement.",
		HighRisk: []string{"all user data becomes the other party's property"},
	},
	{
		Type: "data_sharing", Label: "Data Sharing", Definition: "Disclosure of personal data to affiliates or third parties.",
		HighRisk: []string{"sale or sharing of personal data without consent", "unnamed third parties"},
		LowRisk:  []string{"sharing limited to named processors under confidentiality"},
	},
	{Type: "confidentiality", Label: "Confidentiality", Definition: "Obligations to keep information secret."},
	{
		Type: "non_compete", Label: "Non-Compete", Definition: "Restrictions on working for or starting a competing business.",
		HighRisk: []string{"broad geography or industry", "duration longer than one year"},
		LowRisk:  []string{"narrow scope, short duration, compensated"},
	},
	{
		Type: "ip_rights", Label: "Intellectual Property Rights", Definition: "Ownership and licensing of inventions, content and other IP.",
		HighRisk: []string{"assigns IP created outside the engagement or on personal time"},
	},
	{
		Type: "amendments", Label: "Amendments", Definition: "How the agreement may be changed.",
		HighRisk: []string{"other party may change terms unilaterally without notice"},
		LowRisk:  []string{"changes require written agreement of both parties"},
	},
	{Type: "severability", Label: "Severability", Definition: "Invalid provisions are severed while the rest survives."},
	{
		Type: "arbitration", Label: "Arbitration", Definition: "Mandatory arbitration of disputes instead of court.",
		HighRisk: []string{"mandatory arbitration with costs borne by the consumer", "arbitrator chosen by the other party"},
	},
	{
		Type: "class_action_waiver", Label: "Class Action Waiver", Definition: "Waiver of the right to bring or join class or collective actions.",
		HighRisk: []string{"waives all collective remedies"},
	},
	{Type: "force_majeure", Label: "Force Majeure", Definition: "Excused performance for events beyond a party's control."},
	{
		Type: "assignment", Label: "Assignment", Definition: "Transfer of rights or obligations to another party.",
		HighRisk: []string{"other party may assign freely while you may not"},
	},
	{Type: "notices", Label: "Notices", Definition: "How formal notices must be delivered."},
	{Type: "entire_agreement", Label: "Entire Agreement", Definition: "The written document supersedes prior promises and discussions."},
	{Type: "insurance", Label: "Insurance", Definition: "Insurance a party must carry."},
	{
		Type: "maintenance_repairs", Label: "Maintenance and Repairs", Definition: "Responsibility for upkeep and repair of property or equipment.",
		HighRisk: []string{"tenant pays for structural or major system repairs"},
		LowRisk:  []string{"landlord handles repairs beyond minor upkeep"},
	},
	{
		Type: "late_payment", Label: "Late Payment", Definition: "Consequences of paying after the due date.",
		HighRisk: []string{"late fee exceeding ten percent of the payment", "late fees compound daily"},
		LowRisk:  []string{"grace period followed by a modest flat fee"},
	},
	{
		Type: "rent_escalation", Label: "Rent Escalation", Definition: "Scheduled or discretionary increases in rent or price.",
		HighRisk: []string{"increases at the landlord's discretion with no cap"},
		LowRisk:  []string{"fixed annual increase stated in advance"},
	},
	{Type: "subletting", Label: "Subletting", Definition: "Whether the tenant may sublet or transfer occupancy."},
	{
		Type: "collateral", Label: "Collateral", Definition: "Property pledged as security for a loan.",
		HighRisk: []string{"collateral value far exceeds the loan", "cross-collateralization of unrelated assets"},
	},
	{
		Type: "default_remedies", Label: "Default and Remedies", Definition: "What counts as default and the lender's or landlord's remedies.",
		HighRisk: []string{"default triggered by minor or non-monetary events", "self-help repossession without notice"},
	},
	{
		Type: "acceleration", Label: "Acceleration", Definition: "The whole balance becoming due immediately.",
		HighRisk: []string{"acceleration on a single missed payment"},
	},
	{
		Type: "prepayment", Label: "Prepayment", Definition: "Paying a debt early and any penalty for doing so.",
		HighRisk: []string{"prepayment penalty"},
		LowRisk:  []string{"prepayment allowed without penalty"},
	},
	{Type: "compensation", Label: "Compensation", Definition: "Salary, wages, bonuses and commissions."},
	{Type: "benefits", Label: "Benefits", Definition: "Leave, health coverage, retirement and other benefits."},
	{Type: "working_hours", Label: "Working Hours", Definition: "Hours of work, overtime and scheduling."},
	{
		Type: "non_solicitation", Label: "Non-Solicitation", Definition: "Restrictions on soliciting customers or employees.",
		HighRisk: []string{"covers all customers of the business regardless of contact"},
	},
	{Type: "probation", Label: "Probation", Definition: "Probationary period terms and conditions."},
	{
		Type: "account_suspension", Label: "Account Suspension", Definition: "Suspension or closure of a user account.",
		HighRisk: []string{"suspension at any time without reason, notice or refund"},
	},
	{
		Type: "data_retention", Label: "Data Retention", Definition: "How long personal data is kept and how it is deleted.",
		HighRisk: []string{"indefinite retention after account deletion"},
	},
	{
		Type: "user_content_license", Label: "User Content License", Definition: "License the user grants over content they submit.",
		HighRisk: []string{"perpetual, irrevocable, sublicensable license to user content"},
	},
	{Type: "audit_rights", Label: "Audit Rights", Definition: "Right to inspect records or premises."},
	{Type: ClauseOther, Label: "Other", Definition: "Anything that fits none of the categories above."},
}

var taxonomyIndex = func() map[ClauseType]int {
	m := make(map[ClauseType]int, len(taxonomy))
	for i, info := range taxonomy {
		m[info.Type] = i
	}
	return m
}()

// Taxonomy returns every clause type, other last.
func Taxonomy() []ClauseTypeInfo {
	out := make([]ClauseTypeInfo, len(taxonomy))
	copy(out, taxonomy)
	return out
}

func (t ClauseType) Valid() bool {
	_, ok := taxonomyIndex[t]
	return ok
}

// Order is the taxonomy position, or len(taxonomy) for unknown types.
func (t ClauseType) Order() int {
	if i, ok := taxonomyIndex[t]; ok {
		return i
	}
	return len(taxonomy)
}

func (t ClauseType) Info() ClauseTypeInfo {
	if i, ok := taxonomyIndex[t]; ok {
		return taxonomy[i]
	}
	return taxonomy[len(taxonomy)-1]
}

func (t ClauseType) Label() string {
	return t.Info().Label
}
