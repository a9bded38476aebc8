package entity

// Catalog é a whitelist de valores categóricos válidos, fornecida pelo
// banco. O analyzer só pode mapear extrações para valores presentes aqui;
// menção não mapeável vira null, nunca um código inventado.
type Catalog struct {
	Currencies  []string       `json:"currencies"`
	ContactWays map[int]string `json:"contact_ways"`
}

func (c Catalog) HasCurrency(code string) bool {
	for _, cur := range c.Currencies {
		if cur == code {
			return true
		}
	}
	return false
}

func (c Catalog) HasContactWay(id int) bool {
	_, ok := c.ContactWays[id]
	return ok
}
