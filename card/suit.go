package card

type Suit byte

const (
	Gold  Suit = iota // oro
	Cup               // copa
	Sword             // espada
	Club              // basto
)

func (s Suit) String() string {
	switch s {
	case Gold:
		return "oro"
	case Cup:
		return "copa"
	case Sword:
		return "espada"
	case Club:
		return "basto"
	}
	return "?"
}
