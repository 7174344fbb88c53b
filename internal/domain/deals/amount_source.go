package deals

// AmountSource records where a deal's amount came from. Authority is strictly
// ordered: official filing > article > imported dataset.
type AmountSource string

const (
	AmountSourceOfficialFiling  AmountSource = "official_filing"
	AmountSourceArticle         AmountSource = "article"
	AmountSourceImportedDataset AmountSource = "imported_dataset"
)

func (s AmountSource) Authority() int {
	switch s {
	case AmountSourceOfficialFiling:
		return 3
	case AmountSourceArticle:
		return 2
	case AmountSourceImportedDataset:
		return 1
	default:
		return 0
	}
}

func (s AmountSource) OrDefault() AmountSource {
	if s.Authority() == 0 {
		return AmountSourceArticle
	}
	return s
}
