package treecalc

// collector is the default iteration consumer. It collects every step result
// into a Vector in order.
type collector struct {
	vals Vector
}

func (c *collector) Init() error {
	c.vals = Vector{}
	return nil
}

func (c *collector) SetIterationValue(Value) {}

func (c *collector) Accept(v Value) error {
	c.vals = append(c.vals, v)
	return nil
}

func (c *collector) Result() (Value, error) {
	return c.vals, nil
}

// consume feeds each of vals to c as one step, using the value itself as the
// iteration value.
func consume(c IterationConsumer, vals Vector) (Value, error) {
	if err := c.Init(); err != nil {
		return nil, err
	}
	for _, v := range vals {
		c.SetIterationValue(v)
		if err := c.Accept(v); err != nil {
			return nil, err
		}
	}
	return c.Result()
}
