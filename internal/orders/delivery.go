package orders

import "time"

var deliveryDays = map[string]int{
	ShippingStandard: 5,
	ShippingExpress:  2,
	ShippingNextDay:  1,
}

// EstimateDelivery adds the option's lead time to now and rolls a weekend date forward to Monday.
// Public holidays are not considered.
func EstimateDelivery(now time.Time, option string) time.Time {
	days, ok := deliveryDays[option]
	if !ok {
		days = deliveryDays[ShippingStandard]
	}
	y, m, d := now.UTC().Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
	for date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
		date = date.AddDate(0, 0, 1)
	}
	return date
}
