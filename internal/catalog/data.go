package catalog

var adultPoses = []string{
	"Đứng thẳng, tay buông tự nhiên",
	"Đứng khoanh tay",
	"Đứng một tay chống hông (power pose)",
	"Đứng hai tay chống hông (supermodel pose)",
	"Đứng bắt chéo chân",
	"Đứng nghiêng hông (hip pop)",
	"Đứng quay nửa người, mặt hướng ống kính",
	"Đứng quay lưng, ngoái đầu nhìn lại",
	"Ngồi thẳng ghế, nhìn chính diện",
	"Ngồi bắt chéo chân (chair pose)",
	"Ngồi trên sàn, ôm đầu gối",
	"Ngồi vắt vẻo (edge sitting pose)",
	"Nằm nghiêng, chống đầu bằng tay",
	"Nằm sấp, nâng cằm lên",
	"Tay chạm tóc (hair touch)",
	"Tay vuốt tóc ngược ra sau",
	"Tay che mặt một phần (mysterious)",
	"Tay tạo khung cho gương mặt (face frame pose)",
	"Bước đi tự nhiên (walking pose)",
	"Bước dài như sải catwalk",
	"Nhảy lên (jump shot)",
	"Xoay người (twirl pose, váy bay)",
	"Ngả người dồn trọng tâm vào một chân",
}

var cameraAngles = []string{
	"Ánh sáng: Cửa sổ (Window Lighting)",
	"Ánh sáng: Giờ vàng (Golden Hour)",
	"Ánh sáng: Giờ xanh (Blue Hour)",
	"Ánh sáng: High Key (Tông sáng)",
	"Ánh sáng: Low Key (Tông tối)",
	"Ánh sáng: Mềm (Soft Light)",
	"Ánh sáng: Ngược sáng (Backlight / Rim Light)",
	"Bố cục: Quy tắc 1/3 (Rule of Thirds)",
	"Bố cục: Đối xứng (Symmetry)",
	"Bố cục: Đường dẫn (Leading Lines)",
	"Chuyển động: Làm mờ chuyển động (Motion Blur)",
	"Góc máy: Góc cao (High Angle)",
	"Góc máy: Góc thấp (Low Angle)",
	"Góc máy: Mắt chim (Bird's-eye View, từ trên xuống)",
	"Góc máy: Ngang tầm mắt (Eye-level)",
	"Góc máy: Qua vai (Over-the-shoulder)",
	"Khoảng cách: Cận cảnh (Close-up)",
	"Khoảng cách: Chân dung (Headshot, từ vai trở lên)",
	"Khoảng cách: Toàn thân (Full Body Shot)",
	"Khoảng cách: Trung cảnh (Medium Shot, từ hông lên)",
	"Khung hình: Chân dung môi trường (Environmental Portrait)",
	"Ống kính: Góc rộng (Wide-angle)",
	"Ống kính: Tele (Telephoto Compression)",
	"Ống kính: Xóa phông (Shallow Depth of Field / Bokeh)",
}

var aspectRatios = []string{
	"Vuông (1:1)",
	"Dọc (9:16)",
	"Ngang (16:9)",
	"Ngang Cực Rộng (21:9)",
	"Chân dung (3:4)",
	"Cổ điển (4:3)",
}

var skinTones = []string{
	"Da ô-liu (olive skin)",
	"Nâu sô-cô-la",
	"Ngăm khỏe khoắn (tanned)",
	"Trắng hồng",
	"Trắng sứ",
	"Vàng sáng (light-warm)",
	"Vàng trung bình",
}

var kidTopics = []string{
	"Review đồ chơi",
	"Nghệ thuật & Thủ công (DIY)",
	"Kể chuyện & Đọc sách",
	"Nhảy múa & Âm nhạc",
	"Thử thách vui nhộn",
	"Học tiếng Anh qua bài hát",
	"Khám phá khoa học vui",
	"Tìm hiểu về động vật",
	"Hoạt động ngoài trời",
	"Học các kỹ năng mới",
}

func builtin() map[string]map[string][]string {
	shared := func(m map[string][]string) map[string][]string {
		m[string(CameraAngle)] = cameraAngles
		m[string(AspectRatio)] = aspectRatios
		m[string(SkinTone)] = skinTones
		return m
	}

	return map[string]map[string][]string{
		string(Female): shared(map[string][]string{
			string(BodyType): {"Cân đối, tự nhiên", "Đường cong mềm mại, nữ tính", "Vóc dáng đồng hồ cát, quyến rũ", "Fitness model, săn chắc", "Thanh mảnh, mình hạc xương mai (ethereal)", "Mũm mĩm, đáng yêu"},
			string(Context):  {"Bãi biển Đà Nẵng", "Ban công view đẹp", "Bên cửa sổ ngắm thành phố", "Bên hồ bơi", "Chợ hoa", "Khu nghỉ dưỡng sang trọng (luxury resort)", "Nhà hàng/khách sạn 5 sao", "Phòng GYM", "Phòng khách hiện đại", "Phố cổ Hà Nội", "Quán cafe Sài Gòn", "Sân thượng (rooftop) buổi tối", "Studio chụp ảnh", "Sự kiện thảm đỏ", "Thư viện", "Tiệm bánh ngọt", "Triển lãm nghệ thuật", "Vườn hoa", "Yoga buổi sáng ở resort"},
			string(Clothing): {"Áo dài truyền thống/cách tân", "Áo khoác dạ dáng dài", "Áo khoác trench coat", "Áo len cổ lọ và chân váy", "Áo sweater oversize", "Bohemian (du mục)", "Bộ đồ tập GYM", "Bộ pijama lụa satin", "Business-casual", "Dạo phố (casual)", "Streetwear (hoodie, sneaker)", "Thanh lịch (công sở)", "Tối giản (Minimalist)", "Trang phục thể thao/yoga", "Váy dạ hội quyến rũ", "Váy maxi hở lưng"},
			string(Style):    {"Bí ẩn, ma mị", "Cá tính, 'cool ngầu'", "Cổ điển (classic)", "Hiện đại, thành thị", "Mộng mơ, bay bổng", "Nàng thơ, nghệ thuật", "Ngọt ngào, trong sáng", "Sang chảnh, kiêu kỳ", "Sang trọng, quyền lực", "Thanh lịch, tinh tế", "Thể thao, năng động", "Vintage/Retro"},
			string(Pose):     adultPoses,
			string(CalendarTopic): {"Thời trang & Làm đẹp", "Fitness & Sức khỏe tinh thần", "Du lịch & Khám phá văn hóa", "Ẩm thực & Nấu ăn tại nhà", "Phát triển bản thân & Sự nghiệp", "Trang trí nhà cửa & Lối sống", "Đầu tư tài chính cho phái nữ", "Nghệ thuật & Sáng tạo", "Hẹn hò & Mối quan hệ", "Mẹo vặt cuộc sống"},
		}),
		string(Male): shared(map[string][]string{
			string(BodyType): {"Cân đối, thư sinh", "Lịch lãm, cân đối", "Lực lưỡng, vạm vỡ (bodybuilder)", "Thân hình săn chắc, 6 múi (fitness)", "Cao gầy, người mẫu (slim/fashion)", "Phong trần, tự nhiên", "Thân hình cường tráng (athletic)"},
			string(Context):  {"Bên quầy bar tại nhà", "Bến du thuyền", "Buổi hòa nhạc rock", "Chơi nhạc cụ (guitar/piano)", "Đọc sách trên ghế bành", "Đường phố đô thị", "Garage sửa xe cổ", "Khu nghỉ dưỡng trên núi", "Làm việc tại nhà", "Phòng GYM", "Phòng họp ban giám đốc"},
			string(Clothing): {"Áo hoodie và quần jogger", "Áo khoác bomber", "Áo khoác da (biker jacket)", "Áo khoác dạ", "Áo len cổ lọ", "Áo sơ mi linen", "Bộ đồ trekking", "Bộ suit lịch lãm", "Cardigan len", "Đồ thể thao nam tính", "Đồ vintage", "Overcoat dài"},
			string(Style):    {"Bí ẩn, lạnh lùng", "Bụi bặm, đường phố", "Công nghệ, tương lai", "Cổ điển, hoài niệm", "Doanh nhân thành đạt", "Geek-chic, thông minh", "Lãng tử, nghệ sĩ", "Lịch lãm, trưởng thành", "Năng động, thể thao", "Phong trần, từng trải", "Sang trọng, quyền quý"},
			string(Pose):     adultPoses,
			string(CalendarTopic): {"Công nghệ & Review sản phẩm", "Tài chính cá nhân & Đầu tư", "Fitness & Thể hình", "Kinh doanh & Khởi nghiệp", "Xe cộ & Đam mê tốc độ", "Phong cách sống & Phát triển bản thân", "Du lịch mạo hiểm & Phượt", "Gaming & E-sports", "Kỹ năng sinh tồn", "DIY & Sửa chữa nhà cửa"},
		}),
		string(Girl): shared(map[string][]string{
			string(BodyType): {"Bụ bẫm, đáng yêu", "Cân đối, tự nhiên", "Mảnh mai, cao", "Nhanh nhẹn, hoạt bát"},
			string(Context):  {"Bãi biển", "Bảo tàng khoa học", "Bữa tiệc sinh nhật", "Công viên giải trí", "Cửa hàng đồ chơi", "Dã ngoại trong công viên", "Khu vườn cổ tích", "Lớp học ballet", "Lớp học vẽ", "Phòng ngủ trang trí dễ thương", "Studio chụp ảnh cho bé", "Thư viện thiếu nhi"},
			string(Clothing): {"Áo choàng có mũ", "Áo dài trẻ em", "Áo khoác len cardigan", "Bộ đồ thủy thủ", "Đồ đi học (đồng phục, balo)", "Pijama hình thú", "Trang phục hóa trang (công chúa, tiên nữ)", "Trang phục Noel", "Váy ballet", "Váy công chúa"},
			string(Style):    {"Cá tính, mạnh mẽ", "Dịu dàng, nữ tính", "Đáng yêu, ngây thơ", "Hài hước, lém lỉnh", "Mộng mơ, cổ tích", "Năng động, tinh nghịch", "Thông minh, lanh lợi", "Tò mò, ham khám phá"},
			string(Pose):     {"Cười tít mắt", "Chạy nhảy vui đùa", "Làm mặt xấu đáng yêu", "Ngồi đọc truyện tranh", "Múa ballet", "Ôm gấu bông", "Thổi bong bóng xà phòng", "Trang trí bánh cupcake"},
			string(CalendarTopic): kidTopics,
		}),
		string(Boy): shared(map[string][]string{
			string(BodyType): {"Cân đối, tự nhiên", "Hơi gầy, thư sinh", "Hơi tròn, lém lỉnh", "Khỏe khoắn, năng động"},
			string(Context):  {"Bãi biển xây lâu đài cát", "Bảo tàng khủng long", "Bể bơi", "Câu lạc bộ cờ vua", "Công viên skate", "Khu rừng thám hiểm", "Lớp học lập trình robot", "Lớp võ karate", "Nhà trên cây", "Sân bóng đá", "Trại hè, cắm trại"},
			string(Clothing): {"Áo dài cách tân nam", "Áo khoác hoodie và quần jogger", "Áo khoác jean", "Áo thun in hình khủng long/xe hơi", "Bộ đồ thám hiểm", "Bộ vest cho bé trai", "Pijama, đồ ngủ", "Quần áo siêu anh hùng", "Quần yếm và áo thun", "Trang phục cao bồi"},
			string(Style):    {"Dũng cảm, mạnh mẽ", "Hài hước, lém lỉnh", "Hiếu động, tinh nghịch", "Hòa đồng, thân thiện", "Nghệ sĩ, sáng tạo", "Ngầu, cá tính", "Thích khám phá", "Thông minh, ham học hỏi"},
			string(Pose):     {"Chơi đá bóng", "Đọc sách phiêu lưu", "Lái xe đạp", "Ngồi lắp ráp lego", "Tạo dáng siêu anh hùng", "Thả diều", "Vẽ tranh", "Chơi game console"},
			string(CalendarTopic): kidTopics,
		}),
	}
}
