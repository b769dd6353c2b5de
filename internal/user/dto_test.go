package user_test

import (
	"encoding/json"

	"github.com/frahmantamala/policy-register/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AssignGroupsDTO", func() {
	It("should accept a bare array", func() {
		var dto user.AssignGroupsDTO
		Expect(json.Unmarshal([]byte(`["a","b"]`), &dto)).To(Succeed())
		Expect(dto.GroupIDs).To(Equal([]string{"a", "b"}))
	})

	It("should accept an object with group_ids", func() {
		var dto user.AssignGroupsDTO
		Expect(json.Unmarshal([]byte(`{"group_ids":["a"]}`), &dto)).To(Succeed())
		Expect(dto.GroupIDs).To(Equal([]string{"a"}))
	})

	It("should reject other shapes", func() {
		var dto user.AssignGroupsDTO
		Expect(json.Unmarshal([]byte(`"a"`), &dto)).NotTo(Succeed())
	})
})
