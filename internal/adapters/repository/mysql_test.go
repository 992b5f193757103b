package repository

import (
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/smartystreets/goconvey/convey"
)

func TestIsDuplicateKey(t *testing.T) {
	convey.Convey("Given errors coming back from the driver", t, func() {
		convey.Convey("When the insert hit the primary key", func() {
			err := fmt.Errorf("insert punch: %w",
				&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'p-1' for key 'PRIMARY'"})

			convey.Convey("Then the duplicate is recognized even when wrapped", func() {
				convey.So(isDuplicateKey(err), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the driver reports a different error", func() {
			err := &mysql.MySQLError{Number: 1146, Message: "Table 'fichajes' doesn't exist"}

			convey.Convey("Then it is not treated as a duplicate", func() {
				convey.So(isDuplicateKey(err), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the error is not a driver error at all", func() {
			err := fmt.Errorf("insert punch: %w", fmt.Errorf("connection reset"))

			convey.Convey("Then it is not treated as a duplicate", func() {
				convey.So(isDuplicateKey(err), convey.ShouldBeFalse)
			})

			convey.Convey("And a nil error is not either", func() {
				convey.So(isDuplicateKey(nil), convey.ShouldBeFalse)
			})
		})
	})
}
