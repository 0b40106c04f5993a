package apperr

// User facing messages.
const (
	MsgUnknown           = "خطای ناشناخته!"
	MsgInvalidData       = "داده‌های ورودی نامعتبر است"
	MsgDuplicate         = "داده تکراری است"
	MsgInvalidReference  = "مرجع نامعتبر است"
	MsgRouteNotFound     = "آدرس مورد نظر پیدا نشد"
	MsgLoginRequired     = "لطفاً وارد حساب کاربری خود شوید"
	MsgInvalidToken      = "توکن نامعتبر است"
	MsgExpiredToken      = "توکن منقضی شده است"
	MsgRoleUnknown       = "نقش کاربر مشخص نیست"
	MsgAccessDenied      = "دسترسی غیرمجاز"
	MsgIncompleteData    = "اطلاعات ناقص است"
	MsgMalformedBody     = "بدنه درخواست نامعتبر است"
	MsgInvalidID         = "شناسه نامعتبر است"

	MsgUserNotFound        = "کاربر یافت نشد"
	MsgUserExists          = "کاربر قبلاً ثبت شده است"
	MsgSignupExists        = "کاربر قبلاً ثبت‌نام کرده است"
	MsgWrongPassword       = "پسورد اشتباه است"
	MsgWrongCurrentPass    = "پسورد فعلی اشتباه است"
	MsgRefreshInvalid      = "رفرش توکن نامعتبر است"
	MsgRefreshExpired      = "رفرش توکن منقضی شده است"
	MsgUserHasDependencies = "کاربری که دوره، ثبت‌نام یا پرداخت دارد قابل حذف نیست"

	MsgRoleExists            = "عنوان نقش قبلاً ثبت شده است"
	MsgPermissionExists      = "عنوان دسترسی قبلاً ثبت شده است"
	MsgRoleNotFound          = "نقش مورد نظر یافت نشد"
	MsgRoleMissing           = "نقش یافت نشد"
	MsgInvalidPermissionList = "لیست دسترسی‌ها صحیح نیست"

	MsgCourseNotFound        = "دوره پیدا نشد"
	MsgTeacherNotFound       = "استاد پیدا نشد"
	MsgNotTeacher            = "نقش انتخاب شده باید استاد باشد"
	MsgCourseHasDependencies = "دوره‌ای که جلسه یا ثبت‌نام دارد قابل حذف نیست"

	MsgSessionNotFound        = "جلسه یافت نشد"
	MsgSessionPastDate        = "تاریخ جلسه باید از امروز باشد"
	MsgSessionOverlap         = "یک جلسه در زمان مشخص شده قبلاً وجود دارد"
	MsgSessionCompletedLocked = "وضعیت جلسه تکمیل شده قابل تغییر نیست"
	MsgSessionCancelledLocked = "وضعیت جلسه لغو شده قابل تغییر نیست"
	MsgSessionHasAttendance   = "جلسه ای که حضور یا غیاب دارد قابل حذف نیست"

	MsgEnrollmentNotFound      = "ثبت‌نام یافت نشد"
	MsgEnrollmentExists        = "این ثبت نام قبلاً ثبت شده است"
	MsgCourseFull              = "ظرفیت دوره پر شده است"
	MsgEnrollmentHasAttendance = "ثبت نام‌هایی که حضور یا غیاب دارند قابل حذف نیستند"

	MsgAttendanceNotFound = "رکورد حضور و غیاب یافت نشد"
	MsgAttendanceExists   = "حضور و غیاب قبلاً ثبت شده است"
	MsgAttendanceMismatch = "ثبت‌نام متعلق به دوره این جلسه نیست"

	MsgPaymentNotFound      = "پرداخت یافت نشد"
	MsgPaymentPaidLocked    = "امکان تغییر وضعیت پرداخت انجام‌شده وجود ندارد"
	MsgPaymentPaidUndeleted = "امکان حذف پرداخت انجام‌شده وجود ندارد"
	MsgNegativeTotal        = "مبلغ تخفیف نمی‌تواند از مبلغ کل بیشتر باشد"
)
