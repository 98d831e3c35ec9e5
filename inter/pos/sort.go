package pos

type (
	participant struct {
		ID     string
		Weight Weight
	}

	participants []participant
)

func (pp participants) Less(i, j int) bool {
	if pp[i].Weight != pp[j].Weight {
		return pp[i].Weight > pp[j].Weight
	}

	return pp[i].ID < pp[j].ID
}

func (pp participants) Len() int {
	return len(pp)
}

func (pp participants) Swap(i, j int) {
	pp[i], pp[j] = pp[j], pp[i]
}
