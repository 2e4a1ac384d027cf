package postal_test

import (
	"fmt"

	"github.com/jittakal/jpostcode/pkg/postal"
)

// ExampleSplitPostalCode demonstrates deriving the partition key.
func ExampleSplitPostalCode() {
	key, ok := postal.SplitPostalCode("1000001")
	fmt.Println(ok, key.Prefix, key.Suffix)
	// Output: true 100 0001
}

// ExampleRecord_Values shows the registry column order.
func ExampleRecord_Values() {
	rec := postal.Record{
		LocalGovernmentCode: "01101",
		PostalCode:          "0600000",
		PrefectureName:      "北海道",
	}
	values := rec.Values()
	fmt.Println(postal.FieldNames[0], values[0])
	fmt.Println(postal.FieldNames[2], values[2])
	fmt.Println(rec.HasOldPostalCode())
	// Output:
	// local_government_code 01101
	// postal_code 0600000
	// false
}
