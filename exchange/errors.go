package exchange

import "errors"

var (
	// ErrExchangeNotFound is returned when a lookup names an unknown exchange.
	ErrExchangeNotFound = errors.New("exchange: exchange not found")

	// ErrCurrencyNotFound is returned when a currency is absent from the
	// network or from the named exchange.
	ErrCurrencyNotFound = errors.New("exchange: currency not found")

	// ErrNoExchanges indicates an empty network.
	ErrNoExchanges = errors.New("exchange: no exchanges")

	// ErrEmptyExchangeID indicates an exchange without identifier.
	ErrEmptyExchangeID = errors.New("exchange: empty exchange id")

	// ErrDuplicateExchange indicates two exchanges sharing one identifier.
	ErrDuplicateExchange = errors.New("exchange: duplicate exchange id")

	// ErrInvalidReserve indicates a negative, NaN or infinite reserve.
	ErrInvalidReserve = errors.New("exchange: invalid reserve")

	// ErrInvalidFee indicates a negative, NaN or infinite fee coefficient.
	ErrInvalidFee = errors.New("exchange: invalid fee coefficient")

	// ErrFeeCurrency indicates a fee entry naming a currency the exchange
	// holds no reserve of.
	ErrFeeCurrency = errors.New("exchange: fee references unknown currency")

	// ErrMissingEndpoint indicates that source or target was not provided.
	ErrMissingEndpoint = errors.New("exchange: source or target not set")

	// ErrSourceIsTarget indicates source == target.
	ErrSourceIsTarget = errors.New("exchange: source equals target")

	// ErrInvalidQuantity indicates a source quantity that is not a positive finite number.
	ErrInvalidQuantity = errors.New("exchange: source quantity must be > 0")

	// ErrInvalidFeeBudget indicates a negative or NaN fee budget.
	ErrInvalidFeeBudget = errors.New("exchange: invalid fee budget")

	// ErrInvalidRate indicates a valuation entry that is not a positive finite number.
	ErrInvalidRate = errors.New("exchange: invalid valuation rate")
)
