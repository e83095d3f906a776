package catalog

type State struct {
	Products []Product
}

// Command is one of AddCommand, UpdateCommand, RemoveCommand, ToggleCommand.
type Command interface {
	command()
}

type AddCommand struct{ Product Product }

type UpdateCommand struct {
	ID    string
	Patch ProductPatch
}

type RemoveCommand struct{ ID string }

type ToggleCommand struct{ ID string }

func (AddCommand) command()    {}
func (UpdateCommand) command() {}
func (RemoveCommand) command() {}
func (ToggleCommand) command() {}

// Reduce returns the state after cmd. It never writes into s.Products, so
// earlier snapshots stay valid; an unknown id returns s unchanged.
func Reduce(s State, cmd Command) State {
	switch c := cmd.(type) {
	case AddCommand:
		out := make([]Product, len(s.Products), len(s.Products)+1)
		copy(out, s.Products)
		return State{Products: append(out, c.Product)}

	case UpdateCommand:
		i := indexOf(s.Products, c.ID)
		if i < 0 {
			return s
		}
		return State{Products: replaceAt(s.Products, i, s.Products[i].Apply(c.Patch))}

	case RemoveCommand:
		i := indexOf(s.Products, c.ID)
		if i < 0 {
			return s
		}
		out := make([]Product, 0, len(s.Products)-1)
		out = append(out, s.Products[:i]...)
		return State{Products: append(out, s.Products[i+1:]...)}

	case ToggleCommand:
		i := indexOf(s.Products, c.ID)
		if i < 0 {
			return s
		}
		p := s.Products[i]
		p.Status = p.Status.Toggled()
		return State{Products: replaceAt(s.Products, i, p)}
	}
	return s
}

func indexOf(products []Product, id string) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}

func replaceAt(products []Product, i int, p Product) []Product {
	out := make([]Product, len(products))
	copy(out, products)
	out[i] = p
	return out
}
