package newsletter

// Status is the result of delivering an issue to a single recipient.
type Status int

const (
	Delivered Status = iota + 1
	Failed
)

func (s Status) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the delivery result for one recipient. Err is set for
// failed deliveries.
type Outcome struct {
	Email  string
	Status Status
	Err    error
}

// Report holds one outcome per confirmed recipient, in the order the
// registry returned them.
type Report struct {
	Outcomes []Outcome
}

// Delivered returns the number of successful deliveries.
func (r Report) Delivered() int {
	return r.count(Delivered)
}

// Failed returns the number of failed deliveries.
func (r Report) Failed() int {
	return r.count(Failed)
}

func (r Report) count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}
