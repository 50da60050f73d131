package core

import "sort"

// DefaultProjectName is used until a user saves their own.
const DefaultProjectName = "Meu Novo Apê"

// DefaultPaymentMethods returns a fresh copy of the built-in payment methods.
func DefaultPaymentMethods() []string {
	return []string{"Cartão de Crédito", "PIX", "Débito", "Boleto"}
}

// DefaultChecklist returns a fresh copy of the built-in moving checklist.
func DefaultChecklist() []ChecklistSection {
	return []ChecklistSection{
		{
			ID:    "before",
			Title: "Documentação e Financiamento",
			Items: []ChecklistItem{
				{ID: "c1", Text: "Simular Financiamento", Completed: true},
				{ID: "c2", Text: "Análise de Crédito", Completed: true},
				{ID: "c3", Text: "Assinar contrato com o banco"},
				{ID: "c4", Text: "Registrar imóvel no cartório"},
			},
		},
		{
			ID:    "during",
			Title: "Visitas e Escolha",
			Items: []ChecklistItem{
				{ID: "c7", Text: "Visitar Imóveis"},
				{ID: "c8", Text: "Fazer vistoria do imóvel escolhido"},
			},
		},
		{
			ID:    "after",
			Title: "Pós-Compra",
			Items: []ChecklistItem{
				{ID: "c11", Text: "Pegar as chaves"},
				{ID: "c12", Text: "Trocar as fechaduras"},
				{ID: "c13", Text: "Ligar água e luz"},
			},
		},
	}
}

// OrderChecklist sorts sections into the default journey order. Sections
// the defaults do not know keep their relative order after them.
func OrderChecklist(sections []ChecklistSection) []ChecklistSection {
	rank := map[string]int{}
	for i, s := range DefaultChecklist() {
		rank[s.ID] = i
	}
	pos := func(id string) int {
		if r, ok := rank[id]; ok {
			return r
		}
		return len(rank)
	}
	out := append([]ChecklistSection{}, sections...)
	sort.SliceStable(out, func(i, j int) bool {
		return pos(out[i].ID) < pos(out[j].ID)
	})
	return out
}

// DefaultSnapshot is the anonymous state: empty collections, default
// checklist, project name and payment methods.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		ProjectName:    DefaultProjectName,
		InitialCosts:   []InitialCost{},
		Rooms:          []Room{},
		Purchases:      []PurchaseItem{},
		RecurringCosts: []RecurringCost{},
		Checklist:      DefaultChecklist(),
		PaymentMethods: DefaultPaymentMethods(),
	}
}

// SampleProject returns demo data for seeding a development store.
func SampleProject() Snapshot {
	s := DefaultSnapshot()
	s.InitialCosts = []InitialCost{
		{ID: "1", Name: "Entrada", Value: Reais(50000), DueDate: NewDate(2024, 8, 15)},
		{ID: "2", Name: "Financiamento (1ª Parcela)", Value: Reais(2500), DueDate: NewDate(2024, 9, 1)},
		{ID: "3", Name: "ITBI", Value: Reais(8000), DueDate: NewDate(2024, 8, 20)},
		{ID: "4", Name: "Cartório", Value: Reais(2000), DueDate: NewDate(2024, 8, 20)},
	}
	s.Rooms = []Room{
		{
			ID:           "r1",
			Name:         "Sala de Estar",
			SquareMeters: 20,
			Repairs:      []RepairItem{},
			Materials:    []MaterialItem{{ID: "m1", Name: "Piso Vinílico", Quantity: 20, UnitPrice: Reais(80)}},
			Labor:        []LaborItem{{ID: "l1", ProviderName: "João Pedreiro", Phone: "11987654321", Price: Reais(1500)}},
		},
		{ID: "r2", Name: "Quarto Casal", SquareMeters: 12, Repairs: []RepairItem{}, Materials: []MaterialItem{}, Labor: []LaborItem{}},
	}
	s.Purchases = []PurchaseItem{
		{ID: "p1", Store: "Tok&Stok", ItemName: "Sofá 3 lugares", Price: Reais(2999.90), PaymentMethod: "Cartão de Crédito", PurchaseDate: NewDate(2024, 7, 10)},
		{ID: "p2", Store: "Leroy Merlin", ItemName: "Tinta Branca (18L)", Price: Reais(350), PaymentMethod: "PIX", PurchaseDate: NewDate(2024, 7, 15)},
	}
	s.RecurringCosts = []RecurringCost{
		{ID: "rc1", Name: "Condomínio", Value: Reais(550), DueDay: 10},
		{ID: "rc2", Name: "Internet Fibra", Value: Reais(99.90), DueDay: 15},
	}
	return s
}
