// Package taxonomy maps the upstream free-text classification labels onto
// closed enumerations. The label tables are fixed; an unmapped label is an
// error, never a default.
package taxonomy

// Kind names a taxonomy.
type Kind int

// Taxonomy kinds.
const (
	KindCampaign Kind = iota
	KindQuota
	KindFinancing
	KindChannel
)

func (k Kind) String() string {
	switch k {
	case KindCampaign:
		return "campaign type"
	case KindQuota:
		return "quota"
	case KindFinancing:
		return "financing source"
	case KindChannel:
		return "delivery channel"
	default:
		return "unknown kind"
	}
}

// CampaignType is the admission campaign a program belongs to.
type CampaignType int

// Campaign types.
const (
	Bachelor CampaignType = iota
	Magistracy
	SecVocEdu
	HighQualified
)

// CampaignTypes lists every campaign type in display order.
var CampaignTypes = [...]CampaignType{Bachelor, Magistracy, SecVocEdu, HighQualified}

func (c CampaignType) String() string {
	switch c {
	case Bachelor:
		return "Bachelor"
	case Magistracy:
		return "Magistracy"
	case SecVocEdu:
		return "SecVocEdu"
	case HighQualified:
		return "HighQualified"
	default:
		return "Unknown"
	}
}

// Quota is an admission category governing capacity allocation.
type Quota int

// Quotas.
const (
	BudgetQuota Quota = iota
	TargetQuota
	SpecialQuota
	SeparateQuota
)

// Quotas lists every quota in display order.
var Quotas = [...]Quota{BudgetQuota, TargetQuota, SpecialQuota, SeparateQuota}

func (q Quota) String() string {
	switch q {
	case BudgetQuota:
		return "BudgetQuota"
	case TargetQuota:
		return "TargetQuota"
	case SpecialQuota:
		return "SpecialQuota"
	case SeparateQuota:
		return "SeparateQuota"
	default:
		return "Unknown"
	}
}

// CapacityKey is the upstream field carrying this quota's capacity,
// e.g. "BudgetQuotaCount".
func (q Quota) CapacityKey() string { return q.String() + "Count" }

// Financing is the seat's funding source.
type Financing int

// Financing sources.
const (
	FullCost Financing = iota
	Budget
)

// Financings lists every financing source.
var Financings = [...]Financing{FullCost, Budget}

func (f Financing) String() string {
	switch f {
	case FullCost:
		return "FullCost"
	case Budget:
		return "Budget"
	default:
		return "Unknown"
	}
}

// Channel is how an application was delivered.
type Channel int

// Delivery channels.
const (
	SuperService Channel = iota
	Web
	Personal
	Mail
)

// Channels lists every delivery channel.
var Channels = [...]Channel{SuperService, Web, Personal, Mail}

func (c Channel) String() string {
	switch c {
	case SuperService:
		return "SuperService"
	case Web:
		return "Web"
	case Personal:
		return "Personal"
	case Mail:
		return "Mail"
	default:
		return "Unknown"
	}
}

// Upstream labels.
const (
	LabelBachelor      = "Прием на обучение на бакалавриат/специалитет"
	LabelMagistracy    = "Прием на обучение в магистратуру"
	LabelSecVocEdu     = "Прием на обучение на СПО"
	LabelHighQualified = "Прием на подготовку кадров высшей квалификации"

	LabelBudgetQuota   = "На общих основаниях"
	LabelTargetQuota   = "Целевой прием"
	LabelSpecialQuota  = "Имеющие особое право"
	LabelSeparateQuota = "Отдельная квота"

	LabelFullCost = "Полное возмещение затрат"
	LabelBudget   = "Бюджетная основа"

	LabelSuperService = `Суперсервис "Поступление в вуз онлайн"`
	LabelWeb          = "Веб"
	LabelPersonal     = "Лично"
	LabelMail         = "Почта"
)

var campaignLabels = map[string]CampaignType{
	LabelBachelor:      Bachelor,
	LabelMagistracy:    Magistracy,
	LabelSecVocEdu:     SecVocEdu,
	LabelHighQualified: HighQualified,
}

var quotaLabels = map[string]Quota{
	LabelBudgetQuota:   BudgetQuota,
	LabelTargetQuota:   TargetQuota,
	LabelSpecialQuota:  SpecialQuota,
	LabelSeparateQuota: SeparateQuota,
}

var financingLabels = map[string]Financing{
	LabelFullCost: FullCost,
	LabelBudget:   Budget,
}

var channelLabels = map[string]Channel{
	LabelSuperService: SuperService,
	LabelWeb:          Web,
	LabelPersonal:     Personal,
	LabelMail:         Mail,
}

func lookup[T any](table map[string]T, kind Kind, raw string) (T, error) {
	v, ok := table[raw]
	if !ok {
		var zero T
		return zero, &LabelError{Kind: kind, Label: raw}
	}
	return v, nil
}

// ParseCampaignType maps an AdmissionCampaignType label.
func ParseCampaignType(raw string) (CampaignType, error) {
	return lookup(campaignLabels, KindCampaign, raw)
}

// ParseQuota maps a Category label.
func ParseQuota(raw string) (Quota, error) {
	return lookup(quotaLabels, KindQuota, raw)
}

// ParseFinancing maps a FinancingSource label.
func ParseFinancing(raw string) (Financing, error) {
	return lookup(financingLabels, KindFinancing, raw)
}

// ParseChannel maps a DocumentDelivery label.
func ParseChannel(raw string) (Channel, error) {
	return lookup(channelLabels, KindChannel, raw)
}

// Normalize maps raw to the canonical name of its value in the given taxonomy.
func Normalize(kind Kind, raw string) (string, error) {
	switch kind {
	case KindCampaign:
		v, err := ParseCampaignType(raw)
		return stringOrEmpty(v, err)
	case KindQuota:
		v, err := ParseQuota(raw)
		return stringOrEmpty(v, err)
	case KindFinancing:
		v, err := ParseFinancing(raw)
		return stringOrEmpty(v, err)
	case KindChannel:
		v, err := ParseChannel(raw)
		return stringOrEmpty(v, err)
	default:
		return "", &LabelError{Kind: kind, Label: raw}
	}
}

func stringOrEmpty[T interface{ String() string }](v T, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// Classification is the canonical classification of one record.
type Classification struct {
	Campaign  CampaignType
	Quota     Quota
	Financing Financing
	Channel   Channel
}

// Classify maps all four labels at once, failing on the first unknown one.
func Classify(campaign, category, financing, delivery string) (Classification, error) {
	var (
		c   Classification
		err error
	)
	if c.Campaign, err = ParseCampaignType(campaign); err != nil {
		return Classification{}, err
	}
	if c.Quota, err = ParseQuota(category); err != nil {
		return Classification{}, err
	}
	if c.Financing, err = ParseFinancing(financing); err != nil {
		return Classification{}, err
	}
	if c.Channel, err = ParseChannel(delivery); err != nil {
		return Classification{}, err
	}
	return c, nil
}
