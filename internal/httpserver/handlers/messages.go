package handlers

// Success messages returned in the response envelope.
const (
	msgSignedUp        = "ثبت‌نام با موفقیت انجام شد"
	msgLoggedIn        = "ورود با موفقیت انجام شد"
	msgLoggedOut       = "خروج با موفقیت انجام شد"
	msgPasswordChanged = "پسورد با موفقیت تغییر کرد"
	msgCreated         = "با موفقیت ایجاد شد"
	msgUpdated         = "با موفقیت به‌روزرسانی شد"
	msgDeleted         = "با موفقیت حذف شد"
	msgStatusChanged   = "وضعیت با موفقیت تغییر کرد"
	msgAssigned        = "دسترسی‌ها با موفقیت به نقش اختصاص یافت"
	msgAttendanceBulk  = "حضور و غیاب گروهی ثبت شد"
)
