package affectation

import "errors"

var (
	// ErrNoOpenPeriod signals a student with no open mandatory period left at selection time.
	ErrNoOpenPeriod = errors.New("no open mandatory period")
	// ErrNoCapacity is returned when a capacity mutation would break 0 <= remaining <= original.
	ErrNoCapacity = errors.New("no remaining capacity")
	// ErrUnknownReference is returned when the dataset references a missing entity.
	ErrUnknownReference = errors.New("unknown reference")
	// ErrInvalidDataset covers structural problems detected while indexing the dataset.
	ErrInvalidDataset = errors.New("invalid dataset")
)
