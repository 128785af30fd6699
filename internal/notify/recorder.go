package notify

import "errors"

// Recorders fans each delivery out to several recorders.
type Recorders []Recorder

// RecordDelivery calls every recorder in order and joins their errors.
func (rs Recorders) RecordDelivery(d Delivery) error {
	var errs []error
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := r.RecordDelivery(d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
