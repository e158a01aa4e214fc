package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicwave/clinic-scheduling/internal/schedule"
)

// Message templates mirror the clinic's patient-facing Arabic copy. Dates
// render as yyyy-MM-dd and times as wall-clock HH:mm, clinic-local.

func bookingConfirmationBody(patientName string, date time.Time, start schedule.TimeOfDay) string {
	return fmt.Sprintf(`أهلاً %s! 👋

تم تأكيد حجزك:
📅 التاريخ: %s
⏰ الوقت: %s

للإلغاء، رد بـ "إلغاء"`, patientName, date.Format("2006-01-02"), start)
}

func waitlistOfferBody(patientName string, date time.Time, start schedule.TimeOfDay, waitlistID uuid.UUID) string {
	return fmt.Sprintf(`أهلاً %s! 👋

موعد متاح أسرع:
📅 %s
⏰ %s

تبيه؟ رد بـ "نعم" خلال 10 دقائق
رقم الطلب: %s`, patientName, date.Format("2006-01-02"), start, waitlistID)
}

func reminder24hBody(date time.Time, start schedule.TimeOfDay, serviceName string) string {
	return fmt.Sprintf(`⏰ تذكير: موعدك غداً!

📅 %s
⏰ %s
💆 %s

نراكم غداً! 😊

للإلغاء، رد بـ "إلغاء"`, date.Format("2006-01-02"), start, serviceName)
}

func reminder1hBody(start schedule.TimeOfDay, serviceName string) string {
	return fmt.Sprintf(`⏰⏰ موعدك بعد ساعة!

💆 %s
⏰ %s

نراكم قريباً! 🌟`, serviceName, start)
}

const bookingMenuReply = `أهلاً! 👋

للحجز، اختار الخدمة:
1️⃣ ليزر إزالة شعر
2️⃣ تنظيف بشرة
3️⃣ استشارة دكتور
4️⃣ عناية بالبشرة

أرسل رقم الخدمة`

const confirmationReply = "تم تأكيد موعدك! 🎉\n\nنشوفك بالموعد."

const waitlistAcceptedReply = "تم تأكيد الحجز من قائمة الانتظار! ✅"

const waitlistExpiredReply = "عذراً، انتهت صلاحية العرض. سنتواصل معك عند توفر موعد آخر."

const cancellationReply = "تم استلام طلب الإلغاء. سنتواصل معك لتأكيد الإلغاء."

const defaultReply = `أهلاً! 👋

كيف أقدر أساعدك؟
- للحجز: أرسل "حجز"
- للاستفسار: اتصل على العيادة

شكراً لتواصلك معنا! 🌟`
