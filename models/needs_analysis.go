// ABOUTME: Needs analysis questionnaire models
// ABOUTME: Section types, tagged section updates and completion rules
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"
)

// Section names a needs analysis questionnaire section.
type Section string

const (
	SectionGoals             Section = "goals"
	SectionExistingProducts  Section = "existingProducts"
	SectionCashFlow          Section = "cashFlow"
	SectionInsuranceDetails  Section = "insuranceDetails"
	SectionHousingDetails    Section = "housingDetails"
	SectionInvestmentDetails Section = "investmentDetails"
)

// Sections lists the questionnaire sections in form order.
var Sections = []Section{
	SectionGoals,
	SectionExistingProducts,
	SectionCashFlow,
	SectionInsuranceDetails,
	SectionHousingDetails,
	SectionInvestmentDetails,
}

// requiredSections must all be completed for an analysis to count as complete.
var requiredSections = []Section{SectionGoals, SectionCashFlow}

type EmploymentType string

const (
	EmploymentFixedTerm    EmploymentType = "URCITA"
	EmploymentPermanent    EmploymentType = "NEURCITA"
	EmploymentSelfEmployed EmploymentType = "OSVC"
)

type RiskTolerance string

const (
	RiskConservative RiskTolerance = "KONZERVATIVNI"
	RiskBalanced     RiskTolerance = "VYVAZENY"
	RiskDynamic      RiskTolerance = "DYNAMICKY"
)

type IncomeProtectionGoal struct {
	Interested bool   `json:"interested"`
	Notes      string `json:"notes"`
}

type HousingGoal struct {
	Interested bool   `json:"interested"`
	Reason     string `json:"reason"`
}

type PensionGoal struct {
	Interested       bool   `json:"interested"`
	CurrentSituation string `json:"currentSituation"`
	DesiredSolution  string `json:"desiredSolution"`
}

type ChildrenGoal struct {
	HasChildren        bool     `json:"hasChildren"`
	SavingForEducation bool     `json:"savingForEducation"`
	Amount             *float64 `json:"amount,omitempty"`
	Notes              string   `json:"notes"`
}

type SavingsGoal struct {
	Interested     bool    `json:"interested"`
	CurrentSavings float64 `json:"currentSavings"`
	Reason         string  `json:"reason"`
}

type AssetProtectionGoal struct {
	Interested bool     `json:"interested"`
	Assets     []string `json:"assets"`
	Reason     string   `json:"reason"`
}

type OtherGoals struct {
	TaxOptimization bool   `json:"taxOptimization"`
	StateSupport    bool   `json:"stateSupport"`
	LifeGoals       string `json:"lifeGoals"`
}

type NeedsAnalysisGoals struct {
	IncomeProtection IncomeProtectionGoal `json:"incomeProtection"`
	Housing          HousingGoal          `json:"housing"`
	Pension          PensionGoal          `json:"pension"`
	Children         ChildrenGoal         `json:"children"`
	Savings          SavingsGoal          `json:"savings"`
	AssetProtection  AssetProtectionGoal  `json:"assetProtection"`
	Other            OtherGoals           `json:"other"`
}

type ExistingProduct struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Company     string `json:"company"`
	Reason      string `json:"reason"`
	Usage       string `json:"usage"`
	Pros        string `json:"pros"`
	Cons        string `json:"cons"`
	Advisor     string `json:"advisor"`
	HasContract bool   `json:"hasContract"`
}

type CashFlow struct {
	OfficialIncome       float64        `json:"officialIncome"`
	AdditionalIncome     float64        `json:"additionalIncome"`
	EmploymentType       EmploymentType `json:"employmentType"`
	EmployerContribution *float64       `json:"employerContribution,omitempty"`
	Expenses             float64        `json:"expenses"`
	Loans                float64        `json:"loans"`
	Overdraft            float64        `json:"overdraft"`
}

type HealthStatus struct {
	IsHealthy   bool   `json:"isHealthy"`
	Allergies   string `json:"allergies"`
	Medications string `json:"medications"`
	Procedures  string `json:"procedures"`
	Diabetes    bool   `json:"diabetes"`
	Other       string `json:"other"`
}

type PhysicalInfo struct {
	Height float64 `json:"height"`
	Weight float64 `json:"weight"`
	Smoker bool    `json:"smoker"`
}

type InsuranceDetails struct {
	Risks           []string     `json:"risks"`
	HealthStatus    HealthStatus `json:"healthStatus"`
	PhysicalInfo    PhysicalInfo `json:"physicalInfo"`
	Sports          []string     `json:"sports"`
	Budget          float64      `json:"budget"`
	IncludedPersons []string     `json:"includedPersons"`
}

type HousingDetails struct {
	Goal           string  `json:"goal"`
	Amount         float64 `json:"amount"`
	Timeline       string  `json:"timeline"`
	CurrentSavings float64 `json:"currentSavings"`
	MonthlyPayment float64 `json:"monthlyPayment"`
	CoOwner        bool    `json:"coOwner"`
	Collateral     string  `json:"collateral"`
}

type InvestmentDetails struct {
	TargetAmount         float64       `json:"targetAmount"`
	MonthlyInvestment    float64       `json:"monthlyInvestment"`
	TimeHorizon          int           `json:"timeHorizon"`
	LiquidityImportant   bool          `json:"liquidityImportant"`
	PreferredInvestments []string      `json:"preferredInvestments"`
	RiskTolerance        RiskTolerance `json:"riskTolerance"`
}

type NeedsAnalysis struct {
	ID                int64              `json:"id"`
	ClientID          int64              `json:"clientId"`
	Goals             NeedsAnalysisGoals `json:"goals"`
	ExistingProducts  []ExistingProduct  `json:"existingProducts"`
	CashFlow          CashFlow           `json:"cashFlow"`
	InsuranceDetails  *InsuranceDetails  `json:"insuranceDetails,omitempty"`
	HousingDetails    *HousingDetails    `json:"housingDetails,omitempty"`
	InvestmentDetails *InvestmentDetails `json:"investmentDetails,omitempty"`
	CompletedSections []Section          `json:"completedSections"`
	IsComplete        bool               `json:"isComplete"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// NewNeedsAnalysis returns an empty questionnaire for a client.
func NewNeedsAnalysis(clientID int64) NeedsAnalysis {
	return NeedsAnalysis{
		ClientID: clientID,
		Goals: NeedsAnalysisGoals{
			AssetProtection: AssetProtectionGoal{Assets: []string{}},
		},
		ExistingProducts:  []ExistingProduct{},
		CashFlow:          CashFlow{EmploymentType: EmploymentPermanent},
		CompletedSections: []Section{},
	}
}

// HasCompleted reports whether section was submitted at least once.
func (na *NeedsAnalysis) HasCompleted(section Section) bool {
	return slices.Contains(na.CompletedSections, section)
}

// MarkCompleted records section as completed and refreshes IsComplete.
func (na *NeedsAnalysis) MarkCompleted(section Section) {
	if !na.HasCompleted(section) {
		na.CompletedSections = append(na.CompletedSections, section)
	}
	na.IsComplete = na.checkCompletion()
}

func (na *NeedsAnalysis) checkCompletion() bool {
	for _, s := range requiredSections {
		if !na.HasCompleted(s) {
			return false
		}
	}
	return true
}

// CompletionPercentage is the share of completed sections, rounded to a whole percent.
func (na *NeedsAnalysis) CompletionPercentage() int {
	completed := 0
	for _, s := range Sections {
		if na.HasCompleted(s) {
			completed++
		}
	}
	return int(math.Round(float64(completed) / float64(len(Sections)) * 100))
}

// SectionUpdate replaces one questionnaire section.
type SectionUpdate interface {
	Section() Section
	Apply(na *NeedsAnalysis)
}

type GoalsUpdate struct{ Goals NeedsAnalysisGoals }

func (GoalsUpdate) Section() Section           { return SectionGoals }
func (u GoalsUpdate) Apply(na *NeedsAnalysis) { na.Goals = u.Goals }

type ExistingProductsUpdate struct{ Products []ExistingProduct }

func (ExistingProductsUpdate) Section() Section { return SectionExistingProducts }
func (u ExistingProductsUpdate) Apply(na *NeedsAnalysis) {
	na.ExistingProducts = append([]ExistingProduct{}, u.Products...)
}

type CashFlowUpdate struct{ CashFlow CashFlow }

func (CashFlowUpdate) Section() Section { return SectionCashFlow }
func (u CashFlowUpdate) Apply(na *NeedsAnalysis) {
	na.CashFlow = u.CashFlow
	if na.CashFlow.EmploymentType == "" {
		na.CashFlow.EmploymentType = EmploymentPermanent
	}
}

type InsuranceDetailsUpdate struct{ Details InsuranceDetails }

func (InsuranceDetailsUpdate) Section() Section { return SectionInsuranceDetails }
func (u InsuranceDetailsUpdate) Apply(na *NeedsAnalysis) {
	d := u.Details
	na.InsuranceDetails = &d
}

type HousingDetailsUpdate struct{ Details HousingDetails }

func (HousingDetailsUpdate) Section() Section { return SectionHousingDetails }
func (u HousingDetailsUpdate) Apply(na *NeedsAnalysis) {
	d := u.Details
	na.HousingDetails = &d
}

type InvestmentDetailsUpdate struct{ Details InvestmentDetails }

func (InvestmentDetailsUpdate) Section() Section { return SectionInvestmentDetails }
func (u InvestmentDetailsUpdate) Apply(na *NeedsAnalysis) {
	d := u.Details
	na.InvestmentDetails = &d
}

// ParseSection validates a section name.
func ParseSection(raw string) (Section, error) {
	for _, s := range Sections {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("invalid section: %s", raw)
}

// DecodeSection builds the update for section from its JSON body. The body
// of existingProducts is an array of products; every other section is an
// object.
func DecodeSection(section Section, data []byte) (SectionUpdate, error) {
	var (
		upd SectionUpdate
		err error
	)
	switch section {
	case SectionGoals:
		var u GoalsUpdate
		err = json.Unmarshal(data, &u.Goals)
		upd = u
	case SectionExistingProducts:
		var u ExistingProductsUpdate
		err = json.Unmarshal(data, &u.Products)
		upd = u
	case SectionCashFlow:
		var u CashFlowUpdate
		err = json.Unmarshal(data, &u.CashFlow)
		upd = u
	case SectionInsuranceDetails:
		var u InsuranceDetailsUpdate
		err = json.Unmarshal(data, &u.Details)
		upd = u
	case SectionHousingDetails:
		var u HousingDetailsUpdate
		err = json.Unmarshal(data, &u.Details)
		upd = u
	case SectionInvestmentDetails:
		var u InvestmentDetailsUpdate
		err = json.Unmarshal(data, &u.Details)
		upd = u
	default:
		return nil, fmt.Errorf("invalid section: %s", section)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s data: %w", section, err)
	}
	return upd, nil
}
